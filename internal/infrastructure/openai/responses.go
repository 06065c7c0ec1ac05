package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/basel-ax/shaggydog/internal/domain"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	defaultHTTPTimeout    = 10 * time.Minute
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 30 * time.Second
)

// APIError is a non-2xx answer from the API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Body)
}

// ResponsesClient talks to the Responses API used for chained image generation
type ResponsesClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string

	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// Option customizes a ResponsesClient
type Option func(*ResponsesClient)

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *ResponsesClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry sets the attempt budget and backoff bounds. One attempt means no retry.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *ResponsesClient) {
		c.retryAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// NewResponsesClient creates a new Responses API client
func NewResponsesClient(apiKey, baseURL string, timeout time.Duration, opts ...Option) *ResponsesClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	c := &ResponsesClient{
		httpClient:     &http.Client{Timeout: timeout},
		apiKey:         apiKey,
		baseURL:        strings.TrimRight(baseURL, "/"),
		retryAttempts:  1,
		retryBaseDelay: defaultRetryBaseDelay,
		retryMaxDelay:  defaultRetryMaxDelay,
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type responseTool struct {
	Type          string `json:"type"`
	Action        string `json:"action,omitempty"`
	InputFidelity string `json:"input_fidelity,omitempty"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type inputMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type createResponseRequest struct {
	Model              string         `json:"model"`
	Input              any            `json:"input"`
	PreviousResponseID string         `json:"previous_response_id,omitempty"`
	Tools              []responseTool `json:"tools,omitempty"`
}

type responseBody struct {
	ID     string            `json:"id"`
	Output []json.RawMessage `json:"output"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type outputItemTag struct {
	Type string `json:"type"`
}

type rawImageGenerationCall struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Result *string `json:"result"`
}

type rawMessage struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// CreateResponse issues one Responses API call. A request with an attached
// image is sent as a single user message; a chained request sends only the
// prompt text and the previous response id.
func (c *ResponsesClient) CreateResponse(ctx context.Context, req domain.ResponseRequest) (*domain.Response, error) {
	payload := createResponseRequest{
		Model: req.Model,
		Tools: []responseTool{{
			Type:          "image_generation",
			Action:        req.Tool.Action,
			InputFidelity: req.Tool.InputFidelity,
		}},
	}
	if !req.Previous.IsZero() {
		payload.PreviousResponseID = req.Previous.String()
	}
	if req.ImageDataURI != "" {
		payload.Input = []inputMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "input_text", Text: req.Prompt},
				{Type: "input_image", ImageURL: req.ImageDataURI},
			},
		}}
	} else {
		payload.Input = req.Prompt
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts(); attempt++ {
		resp, err := c.send(ctx, encoded)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == c.attempts() || !retryable(ctx, err) {
			break
		}
		if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *ResponsesClient) send(ctx context.Context, body []byte) (*domain.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var result responseBody
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != nil && result.Error.Message != "" {
		return nil, fmt.Errorf("api error %s: %s", result.Error.Code, result.Error.Message)
	}

	out := &domain.Response{ID: result.ID}
	for _, item := range result.Output {
		decoded, err := decodeOutputItem(item)
		if err != nil {
			return nil, err
		}
		out.Output = append(out.Output, decoded)
	}
	return out, nil
}

// decodeOutputItem maps one output element onto the domain variant for its
// type tag. Only the tag is read for item kinds the pipeline does not use.
func decodeOutputItem(data json.RawMessage) (domain.OutputItem, error) {
	var tag outputItemTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("failed to decode output item: %w", err)
	}
	switch tag.Type {
	case domain.ItemImageGenerationCall:
		var item rawImageGenerationCall
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s item: %w", tag.Type, err)
		}
		call := domain.ImageGenerationCall{ID: item.ID, Status: item.Status}
		if item.Result != nil {
			call.Result = *item.Result
		}
		return call, nil
	case domain.ItemMessage:
		var item rawMessage
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s item: %w", tag.Type, err)
		}
		var text strings.Builder
		for _, part := range item.Content {
			if part.Type == "output_text" {
				text.WriteString(part.Text)
			}
		}
		return domain.MessageOutput{Text: text.String()}, nil
	default:
		return domain.UnknownOutput{Type: tag.Type}, nil
	}
}

func (c *ResponsesClient) attempts() int {
	if c.retryAttempts < 1 {
		return 1
	}
	return c.retryAttempts
}

// backoff doubles from the base delay per attempt, capped at the max delay
func (c *ResponsesClient) backoff(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			return c.retryMaxDelay
		}
		delay *= 2
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusRequestTimeout ||
			apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
