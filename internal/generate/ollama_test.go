package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOllama_SendsPromptAndStripsFences(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":    "qwen",
			"response": "```markdown\n## 文档\ncache notes\n```",
			"done":     true,
		})
	}))
	defer srv.Close()

	g, err := NewOllama(srv.URL, "qwen", "", time.Second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	out, err := g.Generate(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "## 文档\ncache notes\n" {
		t.Fatalf("unexpected output: %q", out)
	}
	if got["model"] != "qwen" || got["stream"] != false {
		t.Fatalf("unexpected request: %v", got)
	}
	if prompt, _ := got["prompt"].(string); !strings.Contains(prompt, "add caching layer") {
		t.Fatalf("prompt misses the query: %q", prompt)
	}
}

func TestOllama_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"qwen\" not found"}`))
	}))
	defer srv.Close()

	g, err := NewOllama(srv.URL, "qwen", "", time.Second)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := g.Generate(context.Background(), sampleRequest()); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewOllama_RequiresModel(t *testing.T) {
	if _, err := NewOllama("http://127.0.0.1:11434", "", "", 0); err == nil {
		t.Fatalf("expected error")
	}
}
