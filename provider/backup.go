package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anisan-cli/anistream/constant"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/network"
	"github.com/anisan-cli/anistream/source"
	"github.com/samber/lo"
)

// DefaultBackupTimeout is the budget for one backup provider request.
const DefaultBackupTimeout = 60 * time.Second

// BackupOptions configures a BackupClient.
type BackupOptions struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	HTTPClient *http.Client
}

// BackupClient asks a secondary provider for direct stream URLs when no
// mirror could be resolved.
type BackupClient struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

var _ source.Backup = (*BackupClient)(nil)

// NewBackup creates a BackupClient.
func NewBackup(opts BackupOptions) *BackupClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBackupTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = constant.UserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = network.NewClient(network.Options{Timeout: opts.Timeout})
	}

	return &BackupClient{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		userAgent: opts.UserAgent,
		http:      opts.HTTPClient,
	}
}

type backupPayload struct {
	Title   string                `json:"title"`
	Sources []source.BackupStream `json:"sources"`
}

// Streams lists the direct streams the backup provider knows for contentID.
// An empty listing is reported as ErrSourceUnavailable.
func (b *BackupClient) Streams(ctx context.Context, contentID string) ([]source.BackupStream, error) {
	body, err := getBody(ctx, b.http, b.baseURL+"/api/movie/"+url.PathEscape(contentID), b.userAgent)
	metrics.RecordSourceRequest("backup", err)
	if err != nil {
		return nil, fmt.Errorf("%w: backup: %v", source.ErrSourceUnavailable, err)
	}

	var payload backupPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: backup: decode: %v", source.ErrSourceUnavailable, err)
	}

	streams := lo.Filter(payload.Sources, func(s source.BackupStream, _ int) bool {
		return s.URL != ""
	})

	if len(streams) == 0 {
		return nil, fmt.Errorf("%w: backup has no streams for %s", source.ErrSourceUnavailable, contentID)
	}

	log.WithFields(log.Fields{"content": contentID, "title": payload.Title, "streams": len(streams)}).Debug("backup streams")
	return streams, nil
}
