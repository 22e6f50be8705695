package query

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/content"
	"github.com/kailas-cloud/docquery/internal/domain"
	"github.com/kailas-cloud/docquery/internal/metrics"
)

func queryOf(r domain.Response) string {
	if r.Query == nil {
		return "<nil>"
	}
	return *r.Query
}

func TestResolve_ConfidentMatchReturnsContent(t *testing.T) {
	f := newFixture(matchAt(0.92, "/docs/reset.md"), Options{})

	r := f.svc.Resolve(context.Background(), domain.Query{Text: "how do I reset my password"})

	if r.Status != domain.StatusOK {
		t.Fatalf("expected OK, got %s (%s)", r.Status, r.Data)
	}
	if r.Data != "To reset your password, open Settings.\n" {
		t.Errorf("unexpected data %q", r.Data)
	}
	if r.Score != "0.92" {
		t.Errorf("expected score 0.92, got %s", r.Score)
	}
	if queryOf(r) != "how do I reset my password" {
		t.Errorf("unexpected query %s", queryOf(r))
	}
	if r.Kind != domain.KindNone {
		t.Errorf("expected KindNone, got %s", r.Kind)
	}
	if f.content.lastPath != "/docs/reset.md" {
		t.Errorf("unexpected path %s", f.content.lastPath)
	}
	if f.search.lastCategory != "faq" {
		t.Errorf("expected configured category, got %s", f.search.lastCategory)
	}
}

func TestResolve_ThresholdGate(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		ok    bool
	}{
		{"well below", 0.60, false},
		{"equal is not a match", DefaultThreshold, false},
		{"just above", 0.7500001, true},
		{"perfect", 1.0, true},
		{"zero", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(matchAt(tc.score, "/docs/reset.md"), Options{})
			r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

			if tc.ok {
				if r.Status != domain.StatusOK {
					t.Fatalf("expected OK, got %s (%s)", r.Status, r.Data)
				}
				return
			}
			if r.Status != domain.StatusKO || r.Data != domain.MsgRefinePrompt || r.Score != domain.ZeroScore {
				t.Errorf("expected refine KO, got %+v", r)
			}
			if r.Kind != domain.KindNoMatch {
				t.Errorf("expected KindNoMatch, got %s", r.Kind)
			}
			if queryOf(r) != "q" {
				t.Errorf("expected query echoed, got %s", queryOf(r))
			}
			if f.content.calls != 0 {
				t.Errorf("KO must not read content, got %d reads", f.content.calls)
			}
		})
	}
}

func TestResolve_EmptyPayloadIsNoMatch(t *testing.T) {
	f := newFixture(domain.Match{Score: 0.99}, Options{})

	r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

	if r.Status != domain.StatusKO || r.Data != domain.MsgRefinePrompt || r.Score != domain.ZeroScore {
		t.Errorf("expected refine KO, got %+v", r)
	}
	if f.content.calls != 0 {
		t.Errorf("expected no content read, got %d", f.content.calls)
	}
}

func TestResolve_AdapterFailures(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		f := newFixture(matchAt(0.9, "/docs/reset.md"), Options{})
		f.conn.err = errors.New("dial tcp 127.0.0.1:6334: connection refused")

		r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

		if r.Data != "qdrant dial tcp 127.0.0.1:6334: connection refused" {
			t.Errorf("unexpected data %q", r.Data)
		}
		if r.Query != nil {
			t.Errorf("expected null query, got %s", *r.Query)
		}
		if f.embed.calls != 0 {
			t.Error("embedder must not run after connect failure")
		}
	})

	t.Run("embed", func(t *testing.T) {
		f := newFixture(matchAt(0.9, "/docs/reset.md"), Options{})
		f.embed.err = errors.New("connection refused")

		r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

		if r.Status != domain.StatusKO || r.Data != "ollama connection refused" {
			t.Errorf("unexpected response %+v", r)
		}
		if r.Score != domain.ZeroScore || r.Query != nil {
			t.Errorf("unexpected score/query %s/%s", r.Score, queryOf(r))
		}
		if r.Kind != domain.KindAdapterFailure {
			t.Errorf("expected KindAdapterFailure, got %s", r.Kind)
		}
		if f.search.calls != 0 {
			t.Error("search must not run after embed failure")
		}
	})

	t.Run("search", func(t *testing.T) {
		f := newFixture(domain.Match{}, Options{StoreName: "postgres"})
		f.search.err = errors.New(`relation "faq" does not exist`)

		r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

		if r.Data != `postgres relation "faq" does not exist` {
			t.Errorf("unexpected data %q", r.Data)
		}
		if r.Query != nil {
			t.Error("expected null query")
		}
		if r.Data == domain.MsgRefinePrompt {
			t.Error("search failure must differ from no match")
		}
	})
}

func TestResolve_ContentUnavailable(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		f := newFixture(matchAt(0.9, "/docs/deleted.md"), Options{})
		r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

		if r.Kind != domain.KindContentUnavailable || r.Data != domain.MsgContentUnavailable {
			t.Errorf("unexpected response %+v", r)
		}
		if queryOf(r) != "q" {
			t.Errorf("expected query present, got %s", queryOf(r))
		}
	})

	t.Run("payload without key", func(t *testing.T) {
		f := newFixture(domain.Match{Score: 0.9, Payload: map[string]string{"title": "x"}}, Options{})
		r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

		if r.Kind != domain.KindContentUnavailable {
			t.Errorf("expected KindContentUnavailable, got %s", r.Kind)
		}
		if f.content.calls != 0 {
			t.Error("expected no content read")
		}
	})
}

func TestResolve_EmptyFileIsContentUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.md")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	f := newFixture(matchAt(0.9, path), Options{})
	svc := New(f.conn, f.embed, f.search, content.NewFileLoader(""), f.svc.opts, zap.NewNop())

	r := svc.Resolve(context.Background(), domain.Query{Text: "q"})
	if r.Status != domain.StatusKO || r.Kind != domain.KindContentUnavailable {
		t.Fatalf("status=%s kind=%s data=%q, want KO content_unavailable", r.Status, r.Kind, r.Data)
	}
	if r.Score != domain.ZeroScore || queryOf(r) != "q" {
		t.Errorf("score=%s query=%s", r.Score, queryOf(r))
	}
}

func TestResolve_EmptyLoadedDataIsNeverOK(t *testing.T) {
	f := newFixture(matchAt(0.9, "/docs/blank.md"), Options{})
	f.content.files["/docs/blank.md"] = ""

	r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})
	if r.Kind != domain.KindContentUnavailable || r.Data != domain.MsgContentUnavailable {
		t.Errorf("unexpected response %+v", r)
	}
}

func TestResolve_CustomPayloadKey(t *testing.T) {
	f := newFixture(domain.Match{Score: 0.9, Payload: map[string]string{"path": "/docs/reset.md"}},
		Options{PayloadKey: "path"})

	r := f.svc.Resolve(context.Background(), domain.Query{Text: "q"})
	if r.Status != domain.StatusOK {
		t.Fatalf("expected OK, got %+v", r)
	}
}

func TestResolve_RequestCategoryOverridesDefault(t *testing.T) {
	f := newFixture(matchAt(0.9, "/docs/reset.md"), Options{})

	f.svc.Resolve(context.Background(), domain.Query{Text: "q", Category: "billing"})

	if f.search.lastCategory != "billing" {
		t.Errorf("expected billing, got %s", f.search.lastCategory)
	}
}

func TestResolve_PassesEmbeddingToSearch(t *testing.T) {
	f := newFixture(matchAt(0.9, "/docs/reset.md"), Options{})

	f.svc.Resolve(context.Background(), domain.Query{Text: "reset"})

	if f.embed.lastText != "reset" {
		t.Errorf("unexpected embedded text %q", f.embed.lastText)
	}
	if len(f.search.lastVector) != 3 || f.search.lastVector[2] != 0.3 {
		t.Errorf("unexpected vector %v", f.search.lastVector)
	}
}

func TestResolve_Timeouts(t *testing.T) {
	f := newFixture(matchAt(0.9, "/docs/reset.md"), Options{
		EmbedTimeout:  time.Second,
		SearchTimeout: 2 * time.Second,
	})

	start := time.Now()
	f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

	if !f.embed.deadline {
		t.Error("expected embed deadline")
	}
	if f.search.deadline.IsZero() || f.search.deadline.Sub(start) > 3*time.Second {
		t.Errorf("unexpected search deadline %v", f.search.deadline)
	}
	if f.conn.deadline.IsZero() || f.conn.deadline.Sub(start) > 3*time.Second {
		t.Errorf("unexpected connect deadline %v", f.conn.deadline)
	}

	noTimeout := newFixture(matchAt(0.9, "/docs/reset.md"), Options{})
	noTimeout.svc.Resolve(context.Background(), domain.Query{Text: "q"})
	if noTimeout.embed.deadline {
		t.Error("expected no embed deadline without timeout")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	f := newFixture(matchAt(0.92, "/docs/reset.md"), Options{})
	q := domain.Query{Text: "q"}

	first := f.svc.Resolve(context.Background(), q)
	second := f.svc.Resolve(context.Background(), q)

	if first.Status != second.Status || first.Data != second.Data ||
		first.Score != second.Score || first.Kind != second.Kind || queryOf(first) != queryOf(second) {
		t.Errorf("responses differ: %+v vs %+v", first, second)
	}
}

func TestResolve_CountsOutcomes(t *testing.T) {
	before := testutil.ToFloat64(metrics.QueryOutcomesTotal.WithLabelValues("no_match"))

	f := newFixture(matchAt(0.1, "/docs/reset.md"), Options{})
	f.svc.Resolve(context.Background(), domain.Query{Text: "q"})

	after := testutil.ToFloat64(metrics.QueryOutcomesTotal.WithLabelValues("no_match"))
	if after-before != 1 {
		t.Errorf("expected one no_match outcome, got %v", after-before)
	}
}
