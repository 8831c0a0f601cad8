package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	rderrors "git.home.luguber.info/inful/repodoc/internal/errors"
)

const (
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	maxRetries  = 3
	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

// ErrAPIKeyNotSet is returned when constructing a client without credentials.
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set")

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates a client for the given API key and model.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: defaultTimeout,
	}, nil
}

// SetTimeout overrides the per-call timeout.
func (c *OpenAIClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// Complete implements Client. Rate-limit responses are retried with
// exponential backoff; other API errors surface immediately.
func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(system),
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0),
		})
		if err != nil {
			lastErr = err
			if isRateLimitError(err) {
				continue
			}
			return "", rderrors.Wrap(err, rderrors.CategoryLLM, rderrors.SeverityError, "completion call failed")
		}

		if len(completion.Choices) == 0 {
			return "", rderrors.New(rderrors.CategoryLLM, rderrors.SeverityError, "no completion choices returned")
		}
		return completion.Choices[0].Message.Content, nil
	}

	return "", rderrors.Wrap(lastErr, rderrors.CategoryLLM, rderrors.SeverityError,
		fmt.Sprintf("rate limited after %d retries", maxRetries))
}

func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
