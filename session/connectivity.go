package session

import (
	"context"
	"time"

	"github.com/anisan-cli/anistream/log"
)

// DefaultPingInterval is how often connectivity is re-checked.
const DefaultPingInterval = 30 * time.Second

// Ping reports whether the mirror service can be reached.
type Ping func(ctx context.Context) error

// MonitorConnectivity runs ping immediately and then every interval until
// ctx is done, recording each transition with SetOnline. A ping gets at most
// one interval to answer.
func (c *Controller) MonitorConnectivity(ctx context.Context, ping Ping, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		c.checkConnectivity(ctx, ping, interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Controller) checkConnectivity(ctx context.Context, ping Ping, timeout time.Duration) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	err := ping(pingCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}

	online := err == nil
	if online == c.estimator.Online() {
		return
	}

	if online {
		log.Info("connectivity restored")
	} else {
		log.Warnf("connectivity lost: %v", err)
	}
	c.SetOnline(online)
}
