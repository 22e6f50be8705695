package query

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// --- Scripted fakes ---

type fakeConnector struct {
	err      error
	calls    int
	deadline time.Time
}

func (f *fakeConnector) Connect(ctx context.Context) error {
	f.calls++
	f.deadline, _ = ctx.Deadline()
	return f.err
}

type fakeEmbedder struct {
	vector   []float32
	err      error
	calls    int
	lastText string
	deadline bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	f.calls++
	f.lastText = text
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vector}, nil
}

type fakeSearcher struct {
	match        domain.Match
	err          error
	calls        int
	lastCategory string
	lastVector   []float32
	deadline     time.Time
}

func (f *fakeSearcher) Best(ctx context.Context, category string, vector []float32) (domain.Match, error) {
	f.calls++
	f.lastCategory = category
	f.lastVector = vector
	f.deadline, _ = ctx.Deadline()
	return f.match, f.err
}

type fakeLoader struct {
	files    map[string]string
	calls    int
	lastPath string
}

func (f *fakeLoader) Load(_ context.Context, path string) (string, error) {
	f.calls++
	f.lastPath = path
	data, ok := f.files[path]
	if !ok {
		return "", domain.ErrContentUnavailable
	}
	return data, nil
}

type fixture struct {
	conn    *fakeConnector
	embed   *fakeEmbedder
	search  *fakeSearcher
	content *fakeLoader
	svc     *Service
}

func newFixture(match domain.Match, opts Options) *fixture {
	f := &fixture{
		conn:   &fakeConnector{},
		embed:  &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		search: &fakeSearcher{match: match},
		content: &fakeLoader{files: map[string]string{
			"/docs/reset.md": "To reset your password, open Settings.\n",
		}},
	}
	if opts.Category == "" {
		opts.Category = "faq"
	}
	if opts.Threshold == 0 {
		opts.Threshold = DefaultThreshold
	}
	f.svc = New(f.conn, f.embed, f.search, f.content, opts, zap.NewNop())
	return f
}

func matchAt(score float64, path string) domain.Match {
	return domain.Match{Score: score, Payload: map[string]string{"id": path}}
}
