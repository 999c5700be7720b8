package session

import (
	"errors"

	"github.com/anisan-cli/anistream/source"
)

// ErrStaleSession is returned by a resolution that was overtaken by a newer
// one before it finished. Its result must be discarded.
var ErrStaleSession = errors.New("stale session")

// Preferences are the user's choices for one resolution.
type Preferences struct {
	Language string `json:"language"`
	Quality  string `json:"quality"`
}

// State is what the presentation layer renders.
type State struct {
	ContentID string        `json:"content_id" jsonschema:"description=Content identifier that was resolved."`
	Language  string        `json:"language,omitempty" jsonschema:"description=Language of the selected mirror."`
	Quality   string        `json:"quality,omitempty" jsonschema:"description=Quality label of the selected mirror or backup stream."`
	StreamURL string        `json:"stream_url,omitempty" jsonschema:"description=Playable stream URL. Empty while loading or on failure."`
	Mirror    source.Mirror `json:"mirror"`
	Video     source.Video  `json:"video"`
	Tier      string        `json:"tier" jsonschema:"enum=lowest,enum=low,enum=sd,enum=hd,enum=full"`
	Score     float64       `json:"score" jsonschema:"minimum=0,maximum=1,description=Network quality score."`
	Loading   bool          `json:"loading"`
	// Exhausted means every mirror failed at least once; the stream, if
	// any, comes from a restarted walk or the backup provider.
	Exhausted bool   `json:"exhausted" jsonschema:"description=Every mirror failed at least once."`
	Offline   bool   `json:"offline"`
	Backup    bool   `json:"backup" jsonschema:"description=The stream comes from the backup provider."`
	Error     string `json:"error,omitempty"`
}

// Playable reports whether the state carries a stream URL.
func (s State) Playable() bool {
	return s.StreamURL != ""
}
