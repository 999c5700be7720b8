// Package provider holds the HTTP mirror services: the primary source used
// for discovery and manifests, and the optional backup stream provider.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/anisan-cli/anistream/cache"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/source"
	"github.com/spf13/viper"
)

// Provider bundles the services a playback session talks to.
type Provider struct {
	Source source.Source
	// Backup is nil when no backup provider is configured.
	Backup source.Backup

	primary   *Client
	mirrors   *cache.Cache[[]source.Mirror]
	manifests *cache.Cache[source.Manifest]
}

// FromConfig builds a Provider from the current configuration.
func FromConfig() *Provider {
	client := network.NewClient(network.Options{
		Timeout:         viper.GetDuration(key.SourceTimeout),
		MaxConnsPerHost: viper.GetInt(key.NetworkMaxConnsPerHost),
		Fingerprint:     viper.GetBool(key.NetworkTLSFingerprint),
	})

	p := &Provider{
		mirrors:   cache.New[[]source.Mirror](cache.WithName("mirrors")),
		manifests: cache.New[source.Manifest](cache.WithName("manifests")),
	}

	p.primary = New(Options{
		BaseURL:     viper.GetString(key.SourceBaseURL),
		HTTPClient:  client,
		UserAgent:   viper.GetString(key.SourceUserAgent),
		MirrorsTTL:  viper.GetDuration(key.CacheMirrorsTTL),
		ManifestTTL: viper.GetDuration(key.CacheManifestTTL),
		Mirrors:     p.mirrors,
		Manifests:   p.manifests,
	})
	p.Source = p.primary

	if backupURL := viper.GetString(key.SourceBackupURL); backupURL != "" {
		p.Backup = NewBackup(BackupOptions{
			BaseURL:   backupURL,
			Timeout:   viper.GetDuration(key.SourceBackupTimeout),
			UserAgent: viper.GetString(key.SourceUserAgent),
		})
	}

	return p
}

// Ping checks that the primary mirror service is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	if p.primary == nil {
		return errors.New("no primary source configured")
	}
	return p.primary.Ping(ctx)
}

// CollectGarbage evicts expired cache entries every interval until ctx is done.
func (p *Provider) CollectGarbage(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultMirrorsTTL
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.sweep(); n > 0 {
				log.Debugf("evicted %d expired cache entries", n)
			}
		}
	}
}

func (p *Provider) sweep() int {
	removed := 0
	if p.mirrors != nil {
		removed += p.mirrors.Sweep()
	}
	if p.manifests != nil {
		removed += p.manifests.Sweep()
	}
	return removed
}
