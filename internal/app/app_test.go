package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/config"
	"github.com/kailas-cloud/docquery/internal/domain"
	healthuc "github.com/kailas-cloud/docquery/internal/usecase/health"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Content.Root = t.TempDir()
	return cfg
}

func TestNew_DefaultsWireWithoutNetwork(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Resolver == nil || a.Health == nil || a.Search == nil || a.Embedder == nil {
		t.Fatalf("incomplete app: %+v", a)
	}
	if a.Search.Name() != config.DriverQdrant {
		t.Errorf("store name = %q, want %q", a.Search.Name(), config.DriverQdrant)
	}
}

func TestNew_InstructionIsOutermost(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.QueryInstruction = "search_query: "

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Embedder.(*domain.InstructionEmbedder); !ok {
		t.Errorf("outermost embedder = %T, want *domain.InstructionEmbedder", a.Embedder)
	}
}

func TestNew_OpenAIProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = config.ProviderOpenAI
	cfg.Embedding.BaseURL = "http://127.0.0.1:1/v1"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Close()
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore.Driver = "milvus"

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "cohere"

	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestResolver_ConnectFailureCarriesStoreName(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore.Driver = config.DriverPostgres
	cfg.VectorStore.DSN = "postgres://%zz"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	resp := a.Resolver.Resolve(context.Background(), domain.Query{Text: "hello", Category: "docs"})
	if resp.Status != domain.StatusKO {
		t.Fatalf("status = %s, want KO", resp.Status)
	}
	if resp.Query != nil {
		t.Errorf("query = %q, want null", *resp.Query)
	}
	if !strings.HasPrefix(resp.Data, config.DriverPostgres+" ") {
		t.Errorf("data = %q, want prefix %q", resp.Data, config.DriverPostgres+" ")
	}
}

func TestWaitForStore_DialFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore.Driver = config.DriverPostgres
	cfg.VectorStore.DSN = "postgres://%zz"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if err := a.WaitForStore(context.Background(), 100*time.Millisecond); err == nil {
		t.Fatal("expected error")
	}
}

func TestHealth_StoreDown(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore.Driver = config.DriverPostgres
	cfg.VectorStore.DSN = "postgres://%zz"
	cfg.Embedding.BaseURL = "http://127.0.0.1:1"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	report := a.Health.WithTimeout(time.Second).Check(context.Background())
	if report.Checks[healthuc.ComponentVectorStore] != healthuc.CheckError {
		t.Errorf("vector_store = %s, want error", report.Checks[healthuc.ComponentVectorStore])
	}
	if report.Status == healthuc.Healthy {
		t.Errorf("status = %s, want not ok", report.Status)
	}
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Close()
	a.Close()
}
