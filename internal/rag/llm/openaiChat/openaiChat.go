package openaiChat

import (
	"fmt"
	"strings"
	"sync"

	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/WaterTechWarriors/PDMS2/internal/config"
	"github.com/WaterTechWarriors/PDMS2/internal/rag/llm"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

const promptTemplate = `Based on the following context about products, answer the question in English.
Focus on specific product names, models, features, or the number of pieces mentioned in the context.
Each section of the context starts with a "Product:" line and includes the number of pieces.
Make sure to include these product names and piece counts in your answer when relevant.
If the information is not explicitly available in the context, say so.

Context:
%s

Question: %s

Answer:`

type llmClient struct {
	api       openai.Client
	modelName string
}

var logger *logger_i.Logger
var chatClient *llmClient
var once sync.Once

func GetOpenAIChatClient(modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		chatClient = &llmClient{
			api:       openai.NewClient(option.WithAPIKey(apikey)),
			modelName: modelName,
		}
		logger.Info("OpenAI chat client created", "model", modelName)
	})

	if chatClient == nil {
		return nil
	}
	return &llmClient{api: chatClient.api, modelName: chatClient.modelName}
}

func (c *llmClient) Generate(ctx context.Context, userQuery string, matches []string, messageHistory []string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	contextText := strings.Join(matches, "\n\n---\n\n")
	if len(messageHistory) > 0 {
		contextText = "Message History:\n" + strings.Join(messageHistory, "\n") + "\n\n" + contextText
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(fmt.Sprintf(promptTemplate, contextText, userQuery)),
		},
	})
	if err != nil {
		log.Error("Error generating answer", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
