package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultAPIPath   = "/v1/chat/completions"
	modelsPath       = "/v1/models"
	finishLength     = "length"
	maxSSELineLength = 1024 * 1024
)

// ClientConfig configures an OpenAIClient.
type ClientConfig struct {
	BaseURL     string
	APIPath     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds connecting and waiting for response headers. A
	// non-streaming completion is bounded by it end to end.
	Timeout time.Duration
	Logger  *slog.Logger
}

// OpenAIClient talks to an OpenAI-compatible chat completions API.
// It works with api.openai.com as well as local servers such as LM Studio
// or Ollama.
type OpenAIClient struct {
	baseURL string
	apiPath string
	apiKey  string
	model   string

	maxTokens   int
	temperature float64
	timeout     time.Duration

	http *http.Client
	log  *slog.Logger
}

// NewOpenAIClient creates a client from cfg.
func NewOpenAIClient(cfg ClientConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	apiPath := cfg.APIPath
	if apiPath == "" {
		apiPath = defaultAPIPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	// No overall client timeout: it would cut long streams short.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}

	return &OpenAIClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiPath:     apiPath,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		http:        &http.Client{Transport: transport},
		log:         logger,
	}
}

func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("OpenAI (%s)", c.model)
}

// Model returns the default model used when a request names none.
func (c *OpenAIClient) Model() string {
	return c.model
}

// SetModel changes the default model.
func (c *OpenAIClient) SetModel(model string) {
	c.model = model
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *errorDetail `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int      `json:"index"`
	Message      *Message `json:"message,omitempty"`
	Delta        *Message `json:"delta,omitempty"`
	FinishReason string   `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type modelsResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		Created int64  `json:"created"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

func (c *OpenAIClient) buildRequest(req Request, stream bool) chatRequest {
	out := chatRequest{
		Model:       c.model,
		Messages:    req.Messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Stream:      stream,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}
	return out
}

func (c *OpenAIClient) makeRequest(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.http.Do(httpReq)
}

// post sends a chat request and returns the response when it is a 2xx.
func (c *OpenAIClient) post(ctx context.Context, chatReq chatRequest) (*http.Response, error) {
	if len(chatReq.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + c.apiPath
	c.log.Debug("chat request", "url", url, "model", chatReq.Model, "messages", len(chatReq.Messages), "stream", chatReq.Stream)

	resp, err := c.makeRequest(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		return nil, parseErrorResponse(resp.StatusCode, respBody, resp.Header)
	}
	return resp, nil
}

// Complete sends a non-streaming request and returns the whole reply.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, c.buildRequest(req, false))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResp.Error != nil {
		return Response{}, &APIError{Code: chatResp.Error.Code, Message: chatResp.Error.Message}
	}
	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return Response{}, &APIError{Message: "no response choices available"}
	}

	choice := chatResp.Choices[0]
	if choice.FinishReason == finishLength {
		return Response{}, ErrTokenLimitExceeded
	}
	out := Response{
		Text:         choice.Message.Content,
		Model:        chatResp.Model,
		FinishReason: choice.FinishReason,
	}
	if chatResp.Usage != nil {
		out.Usage = Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
		}
	}
	return out, nil
}

// Stream sends a streaming request. Text arrives as EventTextDelta events;
// a reply cut off at the token limit ends with ErrTokenLimitExceeded.
func (c *OpenAIClient) Stream(ctx context.Context, req Request) (Stream, error) {
	chatReq := c.buildRequest(req, true)
	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		resp, err := c.post(ctx, chatReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return c.readEvents(ctx, resp.Body, events)
	}), nil
}

// readEvents parses server-sent events from body.
func (c *OpenAIClient) readEvents(ctx context.Context, body io.Reader, events chan<- Event) error {
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxSSELineLength)

	var lastUsage *Usage
	truncated := false

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.log.Debug("skipping malformed stream chunk", "error", err)
			continue
		}
		if chunk.Error != nil {
			if chunk.Error.Code == "rate_limit_exceeded" {
				return &RateLimitError{Message: chunk.Error.Message}
			}
			return &APIError{Code: chunk.Error.Code, Message: chunk.Error.Message}
		}
		if chunk.Usage != nil {
			lastUsage = &Usage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
			}
		}

		for _, choice := range chunk.Choices {
			if choice.Delta != nil && choice.Delta.Content != "" {
				if err := send(ctx, events, Event{Type: EventTextDelta, Text: choice.Delta.Content}); err != nil {
					return err
				}
			}
			if choice.FinishReason == finishLength {
				truncated = true
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	if lastUsage != nil {
		if err := send(ctx, events, Event{Type: EventUsage, Use: lastUsage}); err != nil {
			return err
		}
	}
	if truncated {
		return ErrTokenLimitExceeded
	}
	return send(ctx, events, Event{Type: EventDone})
}

// ListModels returns available models from the server.
func (c *OpenAIClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.makeRequest(ctx, http.MethodGet, c.baseURL+modelsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp.StatusCode, body, resp.Header)
	}

	var parsed modelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse models response: %w", err)
	}

	models := make([]ModelInfo, len(parsed.Data))
	for i, m := range parsed.Data {
		models[i] = ModelInfo{
			ID:      m.ID,
			Created: m.Created,
			OwnedBy: m.OwnedBy,
		}
	}
	return models, nil
}
