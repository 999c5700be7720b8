package history

import (
	"fmt"
	"time"
)

// Record is the last successful resolution for one content id.
type Record struct {
	ContentID   string    `json:"content_id"`
	ManifestRef string    `json:"manifest_ref,omitempty"`
	Language    string    `json:"language,omitempty"`
	Quality     string    `json:"quality,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	StreamURL   string    `json:"stream_url"`
	Backup      bool      `json:"backup"`
	Resolutions int       `json:"resolutions"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

func (r *Record) String() string {
	origin := r.Language + "/" + r.Quality
	if r.Backup {
		origin = "backup"
	}
	return fmt.Sprintf("%s : %s (%s)", r.ContentID, origin, r.ResolvedAt.Format(time.DateTime))
}
