// Package failover chooses which mirror to try next and remembers which
// ones already failed for the current content.
package failover

import (
	"fmt"
	"sync"

	"github.com/anisan-cli/anistream/catalog"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/metrics"
	"github.com/anisan-cli/anistream/source"
	"github.com/samber/lo"
)

// Cursor records where the last pick came from. Index is the position in
// the preferred bucket, or in catalog order when Fallback is set.
type Cursor struct {
	Language string
	Quality  string
	Index    int
	Fallback bool
}

// Event is the input to Dispatch. Only the fields relevant to Kind are read.
type Event struct {
	Kind      EventKind
	ContentID string
	Catalog   *catalog.Catalog
	Language  string
	Quality   string
	Ref       string
	// Reason labels a failure for metrics, e.g. "manifest" or "playback".
	Reason string
}

// Result reports the outcome of a dispatched event.
type Result struct {
	Mirror source.Mirror
	State  State
	// Reset is set when every mirror had failed and the failed set was
	// cleared to serve this selection.
	Reset bool
}

// Selector is the failover state machine for one playback session.
type Selector struct {
	mu        sync.Mutex
	state     State
	contentID string
	failed    map[string]struct{}
	cursor    Cursor
}

// New returns an idle Selector.
func New() *Selector {
	return &Selector{failed: make(map[string]struct{})}
}

// Dispatch applies ev and returns the resulting state.
func (s *Selector) Dispatch(ev Event) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	var (
		result Result
		err    error
	)

	switch ev.Kind {
	case EventContentChanged:
		s.contentID = ev.ContentID
		s.failed = make(map[string]struct{})
		s.cursor = Cursor{}
		s.state = StateIdle
	case EventSelectRequested:
		result, err = s.selectLocked(ev.Catalog, ev.Language, ev.Quality)
	case EventPlaybackFailed:
		s.markFailedLocked(ev.Ref, ev.Reason)
	default:
		err = fmt.Errorf("failover: unknown event %d", ev.Kind)
	}

	result.State = s.state
	log.WithFields(log.Fields{
		"event":   ev.Kind.String(),
		"from":    from.String(),
		"to":      s.state.String(),
		"content": s.contentID,
	}).Debug("failover transition")

	return result, err
}

// ContentChanged resets the selector for a new content id.
func (s *Selector) ContentChanged(contentID string) {
	_, _ = s.Dispatch(Event{Kind: EventContentChanged, ContentID: contentID})
}

// Select picks the next unfailed mirror, preferring the language and
// quality bucket. When every mirror has failed the failed set is cleared
// and the first mirror of the walk is returned again.
func (s *Selector) Select(c *catalog.Catalog, language, quality string) (Result, error) {
	return s.Dispatch(Event{Kind: EventSelectRequested, Catalog: c, Language: language, Quality: quality})
}

// MarkFailed records ref as failed. Marking twice is a no-op.
func (s *Selector) MarkFailed(ref, reason string) {
	_, _ = s.Dispatch(Event{Kind: EventPlaybackFailed, Ref: ref, Reason: reason})
}

// State returns the current state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cursor returns the position of the last pick.
func (s *Selector) Cursor() Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Failed reports whether ref is in the failed set.
func (s *Selector) Failed(ref string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.failed[ref]
	return ok
}

// FailedCount returns the size of the failed set.
func (s *Selector) FailedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failed)
}

func (s *Selector) markFailedLocked(ref, reason string) {
	if ref == "" {
		return
	}
	s.state = StatePlaybackFailed
	if _, ok := s.failed[ref]; ok {
		return
	}
	s.failed[ref] = struct{}{}
	if reason == "" {
		reason = "playback"
	}
	metrics.RecordFailover(reason)
}

func (s *Selector) selectLocked(c *catalog.Catalog, language, quality string) (Result, error) {
	s.state = StateSelecting

	if c.Len() == 0 {
		return Result{}, fmt.Errorf("%w: empty catalog", source.ErrSourceUnavailable)
	}

	var result Result
	if covers(s.failed, c) {
		s.state = StateExhausted
		s.failed = make(map[string]struct{})
		s.state = StateReset
		result.Reset = true
		metrics.ExhaustionResetsTotal.Inc()
		log.WithFields(log.Fields{"content": s.contentID, "mirrors": c.Len()}).Warn("all mirrors failed, starting over")
	}

	mirror, cursor, ok := Pick(c, language, quality, s.failed)
	if !ok {
		return result, fmt.Errorf("%w: no selectable mirror", source.ErrExhausted)
	}

	s.cursor = cursor
	s.state = StateSelected
	result.Mirror = mirror
	return result, nil
}

// Pick walks c for the first mirror not in failed: the preferred bucket
// first, then catalog order. It has no side effects.
func Pick(c *catalog.Catalog, language, quality string, failed map[string]struct{}) (source.Mirror, Cursor, bool) {
	isFree := func(m source.Mirror) bool {
		_, bad := failed[m.ManifestRef]
		return !bad
	}

	if mirror, index, ok := lo.FindIndexOf(c.Bucket(language, quality), isFree); ok {
		return mirror, Cursor{Language: language, Quality: quality, Index: index}, true
	}

	if mirror, index, ok := lo.FindIndexOf(c.All(), isFree); ok {
		return mirror, Cursor{Language: mirror.Language, Quality: mirror.Quality, Index: index, Fallback: true}, true
	}

	return source.Mirror{}, Cursor{}, false
}

func covers(failed map[string]struct{}, c *catalog.Catalog) bool {
	if len(failed) == 0 {
		return false
	}
	return lo.EveryBy(c.Refs(), func(ref string) bool {
		_, ok := failed[ref]
		return ok
	})
}
