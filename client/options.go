package client

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/surfdeck/surfdeck/metric"
)

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// WithAddress overrides the host address. The default is the local host
// socket at 127.0.0.1:12077.
func WithAddress(addr string) ClientOption {
	return func(c *Client) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}
		c.addr = addr
		return nil
	}
}

// WithPollInterval sets the read-deadline used to poll for shutdown while
// waiting for host data.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %v", d)
		}
		c.pollInterval = d
		return nil
	}
}

// WithAutoClose controls whether a closePlugin message tears the connection
// down after handlers run. Enabled by default.
func WithAutoClose(enabled bool) ClientOption {
	return func(c *Client) error {
		c.autoClose = enabled
		return nil
	}
}

// WithPluginIDCheck controls rejection of messages addressed to a different
// plugin id. Enabled by default.
func WithPluginIDCheck(enabled bool) ClientOption {
	return func(c *Client) error {
		c.checkPluginID = enabled
		return nil
	}
}

// WithStatesOnBroadcast controls the bulk state resend on page-change
// broadcasts. Enabled by default.
func WithStatesOnBroadcast(enabled bool) ClientOption {
	return func(c *Client) error {
		c.statesOnBroadcast = enabled
		return nil
	}
}

// WithWorkers sets the number of dispatch workers.
func WithWorkers(n int) ClientOption {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("worker count must be at least 1, got %d", n)
		}
		c.workers = n
		return nil
	}
}

// WithQueueSize sets the dispatch queue capacity. When the queue is full,
// further inbound messages are dropped rather than blocking the read loop.
func WithQueueSize(n int) ClientOption {
	return func(c *Client) error {
		if n < 1 {
			return fmt.Errorf("queue size must be at least 1, got %d", n)
		}
		c.queueSize = n
		return nil
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithMetricsRegistry enables Prometheus instrumentation for the client and
// its dispatch pool.
func WithMetricsRegistry(registry *metric.MetricsRegistry) ClientOption {
	return func(c *Client) error {
		c.registry = registry
		return nil
	}
}

// WithSendRateLimit caps outbound messages per second. Zero disables the
// limit, which is also the default.
func WithSendRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) error {
		if perSecond < 0 {
			return fmt.Errorf("rate limit cannot be negative, got %v", perSecond)
		}
		if perSecond == 0 {
			c.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		return nil
	}
}

// WithoutImplicitStateCreate makes UpdateState fail for ids never created or
// registered, instead of creating them on first write.
func WithoutImplicitStateCreate() ClientOption {
	return func(c *Client) error {
		c.implicitStateCreate = false
		return nil
	}
}
