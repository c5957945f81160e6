// Package summarize wraps the OpenAI chat API behind the two narrow
// summarizer shapes the enrichment engine consumes. Prompt text and model
// names are configuration, callers never build messages themselves.
package summarize

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

const imagePrompt = `You are an image summarizing agent. I will be giving you an image and you will provide a summary describing the image, starting with "An image:", or "An illustration:", or "A diagram:", or "A logo:" or "A symbol:". If it contains a part, try to identify the part, and if it shows an action call that out. If it is a symbol, just give the symbol a meaningful name such as "warning symbol".`

const textPrompt = `You are a text summarizing agent for product documentation. I will provide you with text. Begin with the relevant context, such as "A description of," "An explanation of," or "A guide to," based on the content type, and create a concise summary of the text starting with one of:
"Product Feature:", "Usage Context:", "Appearance:", "Port/Component Type:", "Battery/Charging:", "Comparative Info:", "AI Features:", "Eco-Friendly Attributes:", "Customization Options:", "Warranty/Support:", "Promotions/Seasonality:", "Warning:", "Product Name:", "Instructions:", "Safety:", "Parts:", "Dimensions:", "Certifications:" or "Other:".`

const maxSummaryTokens = 300

type Client struct {
	api          openai.Client
	visionModel  string
	summaryModel string
	logger       *logger_i.Logger
}

var client *Client
var once sync.Once

// GetClient returns the process-wide summarizer client. Model names are
// fixed after the first call.
func GetClient(apiKey string, visionModel string, summaryModel string) *Client {
	once.Do(func() {
		client = &Client{
			api:          openai.NewClient(option.WithAPIKey(apiKey)),
			visionModel:  visionModel,
			summaryModel: summaryModel,
			logger:       logger_i.NewLogger("Summarize"),
		}
	})
	return client
}

// SummarizeImage sends the encoded image to the vision model as a data URL
// and returns the generated description.
func (c *Client) SummarizeImage(ctx context.Context, imageBase64 string, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64)

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(imagePrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxTokens: openai.Int(maxSummaryTokens),
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion returned no choices")
	}

	summary := resp.Choices[0].Message.Content
	c.logger.Debug("Generated image summary", "length", len(summary))
	return summary, nil
}

// SummarizeText returns a tagged summary of the given text.
func (c *Client) SummarizeText(ctx context.Context, text string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.summaryModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(textPrompt + "\n\nText: " + text),
		},
		MaxTokens: openai.Int(maxSummaryTokens),
	})
	if err != nil {
		return "", fmt.Errorf("text completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("text completion returned no choices")
	}

	summary := resp.Choices[0].Message.Content
	c.logger.Debug("Generated text summary", "length", len(summary))
	return summary, nil
}
