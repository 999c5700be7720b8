package source

import "errors"

// Failure taxonomy. Components wrap these with fmt.Errorf("%w: ...") and
// callers match with errors.Is.
var (
	// ErrSourceUnavailable means discovery produced no mirrors at all.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrManifestUnavailable means one mirror's manifest could not be fetched.
	ErrManifestUnavailable = errors.New("manifest unavailable")
	// ErrNoPlayableFile means a manifest lists no recognized video file.
	ErrNoPlayableFile = errors.New("no playable file")
	// ErrExhausted means every known mirror has failed.
	ErrExhausted = errors.New("all mirrors exhausted")
	// ErrOffline means the collaborator reported no connectivity.
	ErrOffline = errors.New("offline")
	// ErrNoSources is the only failure ever shown to the user: catalog and
	// backup provider are both exhausted.
	ErrNoSources = errors.New("no sources available")
)

// Failover reports whether err should advance the failover selector rather
// than surface to the caller.
func Failover(err error) bool {
	return errors.Is(err, ErrManifestUnavailable) || errors.Is(err, ErrNoPlayableFile)
}
