package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// stubResolver returns a scripted response and records the query it saw.
type stubResolver struct {
	resp  domain.Response
	calls int
	last  domain.Query
}

func (s *stubResolver) Resolve(_ context.Context, q domain.Query) domain.Response {
	s.calls++
	s.last = q
	return s.resp
}

func newTestRouter(t *testing.T, resolver *stubResolver, opts Options) http.Handler {
	t.Helper()
	return NewRouter(resolver, opts, zap.NewNop())
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
