// Package llm provides the text-completion capability consumed by the
// pipeline stages. The pipeline only depends on the Client interface;
// the OpenAI implementation lives alongside it.
package llm

import "context"

// Client is a blocking text-completion capability.
type Client interface {
	// Complete sends one system/user prompt pair and returns the generated text.
	Complete(ctx context.Context, system, prompt string) (string, error)
}
