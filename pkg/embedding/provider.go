package embedding

import "context"

// Result is one generated embedding vector, normalized to unit length.
type Result struct {
	Values []float32
	Model  string
}

// Provider generates text embeddings. GenerateBatch must tolerate partial
// failure: a failed item comes back as nil at its index, and only a total
// transport failure returns an error.
type Provider interface {
	Generate(ctx context.Context, text string) (*Result, error)
	GenerateBatch(ctx context.Context, texts []string) ([]*Result, error)
}
