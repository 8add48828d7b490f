package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const defaultOllamaSystem = "You are a senior engineer who writes concise, accurate technical documentation in markdown."

// Ollama asks a local Ollama model to write the document.
type Ollama struct {
	client  *api.Client
	model   string
	system  string
	timeout time.Duration
}

// NewOllama connects to host, or to OLLAMA_HOST when host is empty.
func NewOllama(host, model, system string, timeout time.Duration) (*Ollama, error) {
	if model == "" {
		return nil, fmt.Errorf("generator ollama: missing model")
	}
	var client *api.Client
	if host != "" {
		u, err := url.Parse(host)
		if err != nil {
			return nil, fmt.Errorf("generator ollama: invalid host: %w", err)
		}
		client = api.NewClient(u, http.DefaultClient)
	} else {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("generator ollama: %w", err)
		}
		client = c
	}
	if system == "" {
		system = defaultOllamaSystem
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Ollama{client: client, model: model, system: system, timeout: timeout}, nil
}

func (g *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	stream := false
	var out strings.Builder
	err := g.client.Generate(ctx, &api.GenerateRequest{
		Model:  g.model,
		System: g.system,
		Prompt: Prompt(req),
		Stream: &stream,
	}, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generator ollama: %w", err)
	}
	return stripMarkdownFences(out.String()), nil
}

// stripMarkdownFences removes a single fence wrapping the whole reply, which
// models often add around markdown output.
func stripMarkdownFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") || !strings.HasSuffix(t, "```") || len(t) < 6 {
		return s
	}
	body := strings.TrimSuffix(t, "```")
	nl := strings.IndexByte(body, '\n')
	if nl < 0 {
		return s
	}
	return strings.TrimSpace(body[nl+1:]) + "\n"
}
