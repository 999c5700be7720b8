package source

import "time"

// File is one entry of a manifest's file listing.
type File struct {
	ID       int     `json:"ID"`
	Name     string  `json:"Name"`
	Size     int64   `json:"Size"`
	Progress float64 `json:"Progress"`
}

// Manifest is the file listing associated with one manifest reference.
type Manifest struct {
	Ref       string    `json:"InfoHash"`
	Name      string    `json:"Name"`
	Files     []File    `json:"Files"`
	CreatedAt time.Time `json:"CreatedAt"`
}

// Video is the playable file chosen from a manifest.
type Video struct {
	FileID    int    `json:"file_id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Quality   string `json:"quality"`
	Extension string `json:"extension"`
}

// String returns the quality or file name for display.
func (v Video) String() string {
	if v.Quality != "" {
		return v.Quality
	}
	return v.Name
}
