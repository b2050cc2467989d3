package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hackia/thot/api"
)

func newTestServer() *api.Server {
	return api.NewServer(":0", 1<<20, "*")
}

func postJSON(t *testing.T, srv *api.Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointReportsOK(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("got status field %q, want \"ok\"", body["status"])
	}
}

func TestAssembleEndpointReturnsImage(t *testing.T) {
	srv := newTestServer()
	rec := postJSON(t, srv, "/api/v1/assemble", api.AssembleRequest{
		Filename: "main.maat",
		Source:   "henek %ka, 1\nreturn %ka\n",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp api.AssembleResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Image) == 0 {
		t.Fatal("got an empty image, want assembled bytes")
	}
}

func TestAssembleEndpointRejectsBadSource(t *testing.T) {
	srv := newTestServer()
	rec := postJSON(t, srv, "/api/v1/assemble", api.AssembleRequest{
		Filename: "main.maat",
		Source:   "henek %ka\n", // missing value operand
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("got status %d, want 422", rec.Code)
	}
	var resp api.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected a non-empty diagnostic message")
	}
}

func TestAssembleEndpointRejectsNonPost(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/assemble", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("got status %d, want 405", rec.Code)
	}
}

func TestLintEndpointReturnsIssues(t *testing.T) {
	srv := newTestServer()
	rec := postJSON(t, srv, "/api/v1/lint", api.LintRequest{
		Filename: "main.maat",
		Source:   "neheh nowhere\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var resp api.LintResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var found bool
	for _, issue := range resp.Issues {
		if issue.Code == "UNDEF_LABEL" {
			found = true
		}
	}
	if !found {
		t.Fatalf("got issues %+v, want an UNDEF_LABEL finding", resp.Issues)
	}
}

func TestCorsMiddlewareReflectsAllowedOrigin(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://example.test")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://example.test" {
		t.Fatalf("got Access-Control-Allow-Origin %q, want the request's origin reflected under a \"*\" allowlist", got)
	}
}
