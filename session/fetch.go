package session

import (
	"context"
	"time"

	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/source"
	"github.com/cenkalti/backoff/v5"
)

// fetchManifest retries one mirror's manifest with exponential backoff.
// Fetches are serialized per controller so a second mirror is never
// contacted while the first is still pending.
func (c *Controller) fetchManifest(ctx context.Context, ref string) (source.Manifest, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.baseDelay << c.maxAttempts

	attempt := 0
	return backoff.Retry(ctx, func() (source.Manifest, error) {
		attempt++
		manifest, err := c.src.FetchManifest(ctx, ref)
		metrics.RecordManifestAttempt(err)
		if err != nil && ctx.Err() != nil {
			return manifest, backoff.Permanent(ctx.Err())
		}
		return manifest, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithFields(log.Fields{"ref": ref, "attempt": attempt, "retry_in": next}).Debugf("manifest fetch failed: %v", err)
		}),
	)
}
