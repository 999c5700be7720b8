package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/cache"
	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/source"
	"golang.org/x/exp/slices"
)

const (
	// DefaultMirrorsTTL bounds how long discovery results are reused.
	DefaultMirrorsTTL = 5 * time.Minute
	// DefaultManifestTTL bounds how long manifests are reused.
	DefaultManifestTTL = 10 * time.Minute

	maxBodySize = 4 << 20
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	UserAgent   string
	MirrorsTTL  time.Duration
	ManifestTTL time.Duration
	// Mirrors and Manifests let several clients share one cache instance.
	Mirrors   *cache.Cache[[]source.Mirror]
	Manifests *cache.Cache[source.Manifest]
}

// Client is the HTTP implementation of source.Source. Every call is a
// single attempt; lookups are served from the injected caches first.
type Client struct {
	baseURL     string
	http        *http.Client
	userAgent   string
	mirrorsTTL  time.Duration
	manifestTTL time.Duration
	mirrors     *cache.Cache[[]source.Mirror]
	manifests   *cache.Cache[source.Manifest]
}

var _ source.Source = (*Client)(nil)

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		http:        opts.HTTPClient,
		userAgent:   opts.UserAgent,
		mirrorsTTL:  opts.MirrorsTTL,
		manifestTTL: opts.ManifestTTL,
		mirrors:     opts.Mirrors,
		manifests:   opts.Manifests,
	}

	if c.http == nil {
		c.http = network.Client
	}
	if c.userAgent == "" {
		c.userAgent = constant.UserAgent
	}
	if c.mirrorsTTL <= 0 {
		c.mirrorsTTL = DefaultMirrorsTTL
	}
	if c.manifestTTL <= 0 {
		c.manifestTTL = DefaultManifestTTL
	}
	if c.mirrors == nil {
		c.mirrors = cache.New[[]source.Mirror](cache.WithName("mirrors"))
	}
	if c.manifests == nil {
		c.manifests = cache.New[source.Manifest](cache.WithName("manifests"))
	}

	return c
}

// mirrorPayload is the wire shape returned by the discovery endpoint.
type mirrorPayload struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Quality  string `json:"quality"`
	Seeds    int    `json:"seeds"`
	Peers    int    `json:"peers"`
	Magnet   string `json:"magnet"`
}

// FindMirrors resolves contentID into mirrors, caching the result under
// "mirrors:<id>:<language>".
func (c *Client) FindMirrors(ctx context.Context, contentID, languageHint string) ([]source.Mirror, error) {
	key := "mirrors:" + contentID + ":" + languageHint

	mirrors, err := c.mirrors.GetOrLoad(ctx, key, c.mirrorsTTL, func(ctx context.Context) ([]source.Mirror, error) {
		return c.fetchMirrors(ctx, contentID, languageHint)
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(mirrors), nil
}

func (c *Client) fetchMirrors(ctx context.Context, contentID, languageHint string) ([]source.Mirror, error) {
	query := url.Values{}
	query.Set("tmdbId", contentID)
	query.Set("language", languageHint)
	endpoint := c.baseURL + "/movies/tmdb?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	metrics.RecordSourceRequest("mirrors", err)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}

	payloads, err := decodeMirrors(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: no mirrors for %s", source.ErrSourceUnavailable, contentID)
	}

	mirrors := make([]source.Mirror, 0, len(payloads))
	for _, p := range payloads {
		d, err := parseDescriptor(p.Magnet)
		if err != nil {
			return nil, err
		}

		mirror := source.Mirror{
			ID:          p.ID,
			Fingerprint: d.fingerprint,
			Language:    p.Language,
			Quality:     p.Quality,
			Seeds:       p.Seeds,
			Peers:       p.Peers,
			ManifestRef: d.ref,
			DisplayName: d.displayName,
			Trackers:    d.trackers,
		}
		if mirror.ID == "" {
			mirror.ID = d.ref
		}
		if mirror.Language == "" {
			mirror.Language = languageHint
		}

		mirrors = append(mirrors, mirror)
	}

	log.WithFields(log.Fields{"content": contentID, "mirrors": len(mirrors)}).Debug("discovered mirrors")
	return mirrors, nil
}

// decodeMirrors accepts either a single mirror object or a list of them.
func decodeMirrors(body []byte) ([]mirrorPayload, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var list []mirrorPayload
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, fmt.Errorf("decode mirror list: %w", err)
		}
		return list, nil
	}

	var single mirrorPayload
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, fmt.Errorf("decode mirror: %w", err)
	}
	return []mirrorPayload{single}, nil
}

// FetchManifest retrieves the file listing for manifestRef, caching it
// under "manifest:<ref>".
func (c *Client) FetchManifest(ctx context.Context, manifestRef string) (source.Manifest, error) {
	manifest, err := c.manifests.GetOrLoad(ctx, "manifest:"+manifestRef, c.manifestTTL, func(ctx context.Context) (source.Manifest, error) {
		return c.fetchManifest(ctx, manifestRef)
	})
	if err != nil {
		return source.Manifest{}, err
	}

	manifest.Files = slices.Clone(manifest.Files)
	return manifest, nil
}

func (c *Client) fetchManifest(ctx context.Context, manifestRef string) (source.Manifest, error) {
	body, err := c.get(ctx, c.baseURL+"/torrent/"+url.PathEscape(manifestRef))
	metrics.RecordSourceRequest("manifest", err)
	if err != nil {
		return source.Manifest{}, fmt.Errorf("%w: %s: %v", source.ErrManifestUnavailable, manifestRef, err)
	}

	var manifest source.Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return source.Manifest{}, fmt.Errorf("%w: %s: decode: %v", source.ErrManifestUnavailable, manifestRef, err)
	}
	if manifest.Ref == "" {
		manifest.Ref = manifestRef
	}

	return manifest, nil
}

// ResolveStreamURL templates the playback endpoint. It performs no I/O and
// never fails; validating the stream is the player's job.
func (c *Client) ResolveStreamURL(manifestRef string, fileID int) string {
	return fmt.Sprintf("%s/stream/%s/%d", c.baseURL, manifestRef, fileID)
}

// Ping checks that the mirror service answers at all. Any HTTP response
// counts as reachable; only transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return getBody(ctx, c.http, endpoint, c.userAgent)
}

func getBody(ctx context.Context, client *http.Client, endpoint, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
