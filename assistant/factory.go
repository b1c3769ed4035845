package assistant

import (
	"context"
	"net/http"

	"querypilot/ai"
	"querypilot/config"
	"querypilot/training"
	"querypilot/vectorstore"
)

// Factory builds a fresh Assistant. The pipeline calls it on first use and
// whenever the current Assistant outlives its TTL.
type Factory func(ctx context.Context) (*Assistant, error)

// Components are the process-level collaborators every Assistant shares.
// The text model client is created anew by each Assistant.
type Components struct {
	VertexAI   config.VertexAIConfig
	Pipeline   config.PipelineConfig
	HTTPClient *http.Client
	Store      *vectorstore.Store
	Runner     SQLRunner
	Validator  SQLValidator
}

func NewFactory(c Components) Factory {
	return func(ctx context.Context) (*Assistant, error) {
		generator, err := ai.New(ctx, c.VertexAI, c.HTTPClient)
		if err != nil {
			return nil, err
		}
		return New(ctx, c.Store.WithEmbedder(generator), generator, c.Runner, c.Validator, Options{
			RetrievalK:        c.Pipeline.RetrievalK,
			FollowupLimit:     c.Pipeline.FollowupLimit,
			AllowLLMToSeeData: c.Pipeline.AllowLLMToSeeData,
		}), nil
	}
}

// Corpus returns the retriever as a writable vector store, for training.
func (a *Assistant) Corpus() (training.VectorStore, bool) {
	store, ok := a.retriever.(training.VectorStore)
	return store, ok
}
