package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// VisionClient sends single-turn multimodal prompts through chat completions
type VisionClient struct {
	client *goopenai.Client
	model  string
}

// NewVisionClient creates a vision client for the given model
func NewVisionClient(apiKey, baseURL, model string, timeout time.Duration) *VisionClient {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &VisionClient{client: goopenai.NewClientWithConfig(cfg), model: model}
}

// Describe asks the model about one image and returns its text answer verbatim
func (v *VisionClient) Describe(ctx context.Context, instruction, imageDataURI string) (string, error) {
	resp, err := v.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: v.model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role: goopenai.ChatMessageRoleUser,
			MultiContent: []goopenai.ChatMessagePart{
				{
					Type: goopenai.ChatMessagePartTypeText,
					Text: instruction,
				},
				{
					Type: goopenai.ChatMessagePartTypeImageURL,
					ImageURL: &goopenai.ChatMessageImageURL{
						URL:    imageDataURI,
						Detail: goopenai.ImageURLDetailAuto,
					},
				},
			},
		}},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}
