package engagekit

import (
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.engagekit.io"

// clientConfig holds configuration for the client.
type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger

	// Retry configuration
	maxRetries     int // -1 means "use default"
	retryBaseDelay time.Duration
	retryMaxJitter time.Duration

	// Queue configuration
	queueCapacity int
	batchSize     int
	flushInterval time.Duration

	// Local state configuration
	stateFile  string
	stateStore StateStore

	circuitBreaker bool
}

// Option configures the client.
type Option func(*clientConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger for diagnostic output. By default all output
// is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMaxRetries sets the number of retries after a failed attempt.
// Default: 3 (four total tries).
func WithMaxRetries(count int) Option {
	return func(c *clientConfig) {
		c.maxRetries = count
	}
}

// WithRetryBaseDelay sets the exponential backoff base delay.
// Default: 500ms.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(c *clientConfig) {
		c.retryBaseDelay = delay
	}
}

// WithRetryMaxJitter sets the upper bound of the uniform random jitter
// added to every retry delay. Default: 250ms.
func WithRetryMaxJitter(jitter time.Duration) Option {
	return func(c *clientConfig) {
		c.retryMaxJitter = jitter
	}
}

// WithQueueCapacity sets the maximum number of pending events. When the
// queue is full the oldest pending event is dropped. Default: 1000.
func WithQueueCapacity(capacity int) Option {
	return func(c *clientConfig) {
		c.queueCapacity = capacity
	}
}

// WithBatchSize sets the pending-event count that forces an immediate
// flush. Default: 10.
func WithBatchSize(size int) Option {
	return func(c *clientConfig) {
		c.batchSize = size
	}
}

// WithFlushInterval sets the maximum age of the oldest pending event
// before a flush is triggered. Default: 5s.
func WithFlushInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.flushInterval = interval
	}
}

// WithStateFile persists message eligibility state to a JSON file at path.
// Without this option (or WithStateStore) state is held in memory only.
func WithStateFile(path string) Option {
	return func(c *clientConfig) {
		c.stateFile = path
	}
}

// WithStateStore supplies a custom local state store. It takes precedence
// over WithStateFile.
func WithStateStore(store StateStore) Option {
	return func(c *clientConfig) {
		c.stateStore = store
	}
}

// WithCircuitBreaker enables a circuit breaker around batch delivery.
// While the breaker is open, flush attempts fail fast without reaching
// the network; failed batches are still re-queued.
func WithCircuitBreaker() Option {
	return func(c *clientConfig) {
		c.circuitBreaker = true
	}
}
