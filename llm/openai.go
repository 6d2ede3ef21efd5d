package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4"
	DefaultTemperature = 0.1
	placeholderKey     = "your-openai-api-key-here"
	defaultMaxTokens   = 2000
)

// Config configures an OpenAIExtractor. Zero values select the defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIExtractor implements FieldExtractor with the chat completions API.
type OpenAIExtractor struct {
	client *resty.Client
	cfg    Config
}

// NewOpenAIExtractor builds an extractor. It fails with ErrNotConfigured when
// the key is empty or still the sample placeholder.
func NewOpenAIExtractor(cfg Config) (*OpenAIExtractor, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || key == placeholderKey {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(key).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	client.JSONMarshal = json.Marshal
	client.JSONUnmarshal = json.Unmarshal

	return &OpenAIExtractor{client: client, cfg: cfg}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ExtractFields sends the contract text to the model and parses its reply.
func (e *OpenAIExtractor) ExtractFields(ctx context.Context, text string) (*ContractFields, error) {
	req := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: ExtractionPrompt},
			{Role: "user", Content: text},
		},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&chatResponse{}).
		SetError(&apiErrorBody{}).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	if resp.IsError() {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if body, ok := resp.Error().(*apiErrorBody); ok {
			apiErr.Message = body.Error.Message
		}
		return nil, apiErr
	}

	out, ok := resp.Result().(*chatResponse)
	if !ok || len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, ErrNoResponse
	}
	return ParseFields(out.Choices[0].Message.Content)
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseFields decodes a model reply. Replies wrapped in prose or code fences
// fall back to the outermost {...} block.
func ParseFields(reply string) (*ContractFields, error) {
	var fields ContractFields
	if err := json.Unmarshal([]byte(reply), &fields); err != nil {
		block := jsonObject.FindString(reply)
		if block == "" {
			return nil, ErrUnparseable
		}
		fields = ContractFields{}
		if err := json.Unmarshal([]byte(block), &fields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
	}
	fields.normalize()
	return &fields, nil
}
