package llm

import "context"

// Provider answers a question over the retrieved context blocks. Each block
// already carries its product facts; messageHistory is the prior turns of the
// chat, oldest first.
type Provider interface {
	Generate(ctx context.Context, query string, contextBlocks []string, messageHistory []string) (string, error)
}
