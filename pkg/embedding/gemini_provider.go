package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const geminiEmbeddingModel = "text-embedding-004"

type GeminiProvider struct {
	ApiKey string
	client *http.Client
}

func NewGeminiProvider(apiKey string) Provider {
	return &GeminiProvider{
		ApiKey: apiKey,
		client: &http.Client{},
	}
}

type geminiRequestContentPart struct {
	Text string `json:"text"`
}

type geminiRequestContent struct {
	Parts []geminiRequestContentPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string               `json:"model"`
	Content geminiRequestContent `json:"content"`
}

type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiResponseEmbedding `json:"embedding"`
}

type geminiBatchEmbedResponse struct {
	Embeddings []geminiResponseEmbedding `json:"embeddings"`
}

func (p *GeminiProvider) Generate(ctx context.Context, text string) (*Result, error) {
	geminiReq := geminiEmbedRequest{
		Model: "models/" + geminiEmbeddingModel,
		Content: geminiRequestContent{
			Parts: []geminiRequestContentPart{{Text: text}},
		},
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:embedContent",
		geminiEmbeddingModel,
	)

	body, err := p.post(ctx, endpoint, geminiReq)
	if err != nil {
		return nil, err
	}

	var resEmbedding geminiEmbedResponse
	if err := json.Unmarshal(body, &resEmbedding); err != nil {
		return nil, err
	}

	return &Result{
		Values: normalizeVector(resEmbedding.Embedding.Values),
		Model:  geminiEmbeddingModel,
	}, nil
}

// GenerateBatch uses the batchEmbedContents endpoint: one round trip for the
// whole batch. Items the API returns empty vectors for come back nil.
func (p *GeminiProvider) GenerateBatch(ctx context.Context, texts []string) ([]*Result, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batchReq := geminiBatchEmbedRequest{
		Requests: make([]geminiEmbedRequest, len(texts)),
	}
	for i, text := range texts {
		batchReq.Requests[i] = geminiEmbedRequest{
			Model: "models/" + geminiEmbeddingModel,
			Content: geminiRequestContent{
				Parts: []geminiRequestContentPart{{Text: text}},
			},
		}
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1/models/%s:batchEmbedContents",
		geminiEmbeddingModel,
	)

	body, err := p.post(ctx, endpoint, batchReq)
	if err != nil {
		return nil, err
	}

	var batchRes geminiBatchEmbedResponse
	if err := json.Unmarshal(body, &batchRes); err != nil {
		return nil, err
	}

	results := make([]*Result, len(texts))
	for i := range texts {
		if i >= len(batchRes.Embeddings) || len(batchRes.Embeddings[i].Values) == 0 {
			continue
		}
		results[i] = &Result{
			Values: normalizeVector(batchRes.Embeddings[i].Values),
			Model:  geminiEmbeddingModel,
		}
	}
	return results, nil
}

func (p *GeminiProvider) post(ctx context.Context, endpoint string, payload interface{}) ([]byte, error) {
	reqJson, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqJson))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	resByte, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from gemini response, code %d, body %s", res.StatusCode, string(resByte))
	}

	return resByte, nil
}
