package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/tekstlab/interlink/internal/domain"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultBatchLimit is the provider-imposed maximum texts per call
	DefaultBatchLimit = 100
	// DefaultRetryAfter is used when the provider rate-limits without a usable hint
	DefaultRetryAfter = 30 * time.Second
)

var (
	// ErrEmptyBatch is returned when no texts are given
	ErrEmptyBatch = errors.New("embedding batch cannot be empty")
	// ErrNoAPIKey is returned when the OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for the underlying embeddings endpoint
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client wraps the OpenAI embeddings API with batching, a client-side rate
// limiter, and provider error classification.
type Client struct {
	api        EmbeddingAPI
	model      openai.EmbeddingModel
	dimensions int
	batchLimit int
	limiter    *rate.Limiter
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	BatchLimit          int
	// RequestsPerMinute caps outgoing embedding calls; zero disables the
	// local limiter and relies on the provider's 429 responses alone.
	RequestsPerMinute int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	batchLimit := cfg.BatchLimit
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.RequestsPerMinute)
	}
	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		model:      model,
		dimensions: dimensions,
		batchLimit: batchLimit,
		limiter:    limiter,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// EmbedBatch generates one embedding per input text, splitting the input
// into provider-sized calls. On a rate limit it returns a
// domain.RateLimitError so the caller can schedule a retry instead of
// blocking; any other provider failure maps to ErrProviderUnavailable.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchLimit {
		end := start + c.batchLimit
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	if c.limiter != nil {
		reservation := c.limiter.Reserve()
		if !reservation.OK() {
			return nil, &domain.RateLimitError{RetryAfter: DefaultRetryAfter}
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			return nil, &domain.RateLimitError{RetryAfter: delay}
		}
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	if len(resp.Data) != len(texts) {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider,
			"embedding provider unavailable",
			fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != c.dimensions {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProvider,
				"embedding provider unavailable",
				fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(data.Embedding), c.dimensions))
		}
		vectors[i] = data.Embedding
	}
	return vectors, nil
}

// classifyProviderError separates rate limiting from everything else. A 429
// becomes a structured backoff instruction; the rest is provider
// unavailability and must not advance the caller's cursor.
func classifyProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return &domain.RateLimitError{RetryAfter: DefaultRetryAfter}
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeProvider, "embedding provider unavailable", err)
}
