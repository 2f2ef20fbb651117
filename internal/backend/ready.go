package backend

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

// WaitReady pings the backend with exponential backoff until it answers or
// attempts run out. It is used once at startup; data calls never retry.
func (c *Client) WaitReady(ctx context.Context, attempts uint) error {
	return retry.Do(
		func() error { return c.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(3*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n+1).Str("backend", c.base).Msg("backend not reachable yet")
		}),
	)
}
