package engagekit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/engagekit/client-go/internal/api"
	"github.com/engagekit/client-go/internal/eligibility"
	"github.com/engagekit/client-go/internal/queue"
	"github.com/engagekit/client-go/internal/retry"
	"github.com/engagekit/client-go/internal/store"
)

// Version is the SDK version, reported to the API in the X-Client header.
const Version = api.Version

// StateStore is the local persistent key-value store that holds message
// eligibility state. Implementations must support synchronous read and
// write from a single process.
type StateStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Client is the main EngageKit client. It batches telemetry events to the
// ingest endpoint and fetches and ranks in-app messages. A Client is safe
// for concurrent use; construct one per application and Close it on exit.
type Client struct {
	apiClient   *api.Client
	queue       *queue.Queue
	engine      *eligibility.Engine
	retryPolicy retry.Policy
	breaker     *gobreaker.CircuitBreaker
	logger      *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// New creates a new EngageKit client with the given API key. No network
// call is made; use CheckKey to validate the key against the server.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := &clientConfig{
		baseURL:    defaultBaseURL,
		maxRetries: -1,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	apiClient, err := buildAPIClient(apiKey, cfg)
	if err != nil {
		return nil, err
	}

	stateStore, err := buildStateStore(cfg)
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy()
	if cfg.maxRetries >= 0 {
		policy.MaxRetries = cfg.maxRetries
	}
	if cfg.retryBaseDelay > 0 {
		policy.BaseDelay = cfg.retryBaseDelay
	}
	if cfg.retryMaxJitter > 0 {
		policy.MaxJitter = cfg.retryMaxJitter
	}
	policy.Logger = cfg.logger

	c := &Client{
		apiClient:   apiClient,
		retryPolicy: policy,
		logger:      cfg.logger,
		engine: eligibility.New(eligibility.Config{
			Store:  stateStore,
			Logger: cfg.logger,
		}),
	}

	if cfg.circuitBreaker {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "engagekit-batch",
		})
	}

	c.queue = queue.New(queue.Config{
		Capacity:      cfg.queueCapacity,
		BatchSize:     cfg.batchSize,
		FlushInterval: cfg.flushInterval,
		Send:          c.sendBatch,
		Logger:        cfg.logger,
	})

	return c, nil
}

// buildAPIClient creates and configures an API client from the given config.
func buildAPIClient(apiKey string, cfg *clientConfig) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithBaseURL(cfg.baseURL),
	}
	if cfg.timeout > 0 {
		apiOpts = append(apiOpts, api.WithTimeout(cfg.timeout))
	}

	apiClient, err := api.New(apiKey, apiOpts...)
	if err != nil {
		return nil, err
	}

	if cfg.httpClient != nil {
		apiClient.SetHTTPClient(cfg.httpClient)
	}

	return apiClient, nil
}

// buildStateStore selects the local state store: an explicit store, a
// file-backed store, or in-memory state.
func buildStateStore(cfg *clientConfig) (StateStore, error) {
	if cfg.stateStore != nil {
		return cfg.stateStore, nil
	}
	if cfg.stateFile != "" {
		return store.OpenFile(cfg.stateFile)
	}
	return store.NewMemory(), nil
}

// checkClosed returns ErrClientClosed if the client has been closed.
func (c *Client) checkClosed() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// CheckKey validates the API key against the server.
func (c *Client) CheckKey(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	return wrapError(retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		return c.apiClient.CheckKey(ctx)
	}))
}

// sendBatch delivers one batch of queued events, retrying per the client's
// retry policy. It is installed as the queue's sender.
func (c *Client) sendBatch(ctx context.Context, events []queue.Event) error {
	batch := make([]api.BatchEvent, len(events))
	for i, e := range events {
		batch[i] = api.BatchEvent{
			ID:         e.ID,
			Type:       e.Type,
			Properties: e.Properties,
		}
	}

	// One key per batch, reused across every delivery attempt, so a batch
	// received twice by the server dedupes to one submission.
	idempotencyKey := uuid.NewString()

	return retry.Do(ctx, c.retryPolicy, func(ctx context.Context) error {
		result, err := c.deliverBatch(ctx, batch, idempotencyKey)
		if err != nil {
			return err
		}
		if len(result.Failed) > 0 {
			// Partial failure is reported by the server but does not fail
			// the batch.
			c.logger.Warn("server rejected some events in batch",
				slog.Int("rejected", len(result.Failed)),
				slog.Int("sent", len(batch)),
			)
		}
		return nil
	})
}

func (c *Client) deliverBatch(ctx context.Context, batch []api.BatchEvent, idempotencyKey string) (*api.BatchResult, error) {
	if c.breaker == nil {
		return c.apiClient.TrackBatch(ctx, batch, idempotencyKey)
	}
	result, err := c.breaker.Execute(func() (any, error) {
		return c.apiClient.TrackBatch(ctx, batch, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return result.(*api.BatchResult), nil
}

// Close flushes pending events and releases the client's background
// resources. Errors during the final flush are logged, not returned.
// After Close the client must not be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.queue.Shutdown()
	return nil
}
