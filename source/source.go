package source

import "context"

// Source discovers mirrors and their manifests. Implementations perform a
// single attempt per call; retry policy belongs to the caller.
type Source interface {
	// FindMirrors resolves a content identifier into its candidate mirrors.
	FindMirrors(ctx context.Context, contentID, languageHint string) ([]Mirror, error)

	// FetchManifest retrieves the file listing of one mirror.
	FetchManifest(ctx context.Context, manifestRef string) (Manifest, error)

	// ResolveStreamURL templates the playback endpoint for a file. No I/O.
	ResolveStreamURL(manifestRef string, fileID int) string
}

// BackupStream is a directly playable stream offered by the backup provider.
type BackupStream struct {
	URL      string `json:"url"`
	Quality  string `json:"quality"`
	Language string `json:"language"`
}

// Backup is the secondary provider consulted once the primary catalog is
// unusable.
type Backup interface {
	Streams(ctx context.Context, contentID string) ([]BackupStream, error)
}
