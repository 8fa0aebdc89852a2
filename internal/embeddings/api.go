package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0x5457/product-concierge/internal/metrics"
)

// ApiEmbedder calls a sentence-embedding HTTP service that accepts
// {"sentences": [...]} and answers with a JSON array of vectors.
type ApiEmbedder struct {
	url    string
	model  string
	client *http.Client
}

func NewApi(url, model string) *ApiEmbedder {
	return &ApiEmbedder{url: url, model: model, client: &http.Client{Timeout: 30 * time.Second}}
}

func (e *ApiEmbedder) ModelName() string {
	if e.model == "" {
		return "api"
	}
	return e.model
}

func (e *ApiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return e.embedRequest(ctx, texts)
}

func (e *ApiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.embedRequest(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

func (e *ApiEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.post(ctx, texts)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues("api", status).Inc()
	return embeddings, err
}

func (e *ApiEmbedder) post(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(&embedRequest{Sentences: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", response.StatusCode, bytes.TrimSpace(msg))
	}

	var embeddings [][]float32
	if err := json.NewDecoder(response.Body).Decode(&embeddings); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}
