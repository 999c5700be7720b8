// Package session drives one playback session: it resolves a content id to
// a stream URL, retries and fails over between mirrors, and folds player
// telemetry into the recommended tier.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anisan-cli/anistream/catalog"
	"github.com/anisan-cli/anistream/failover"
	"github.com/anisan-cli/anistream/history"
	"github.com/anisan-cli/anistream/log"
	"github.com/anisan-cli/anistream/netquality"
	"github.com/anisan-cli/anistream/source"
	"github.com/samber/lo"
)

const (
	// DefaultMaxAttempts caps manifest fetches per mirror.
	DefaultMaxAttempts = 5
	// DefaultBaseDelay is the first backoff interval; it doubles per attempt.
	DefaultBaseDelay = 5 * time.Second
)

// Details supplies content metadata. It is optional.
type Details interface {
	// PreferredLanguage returns the content's own language, used when the
	// user expressed no preference.
	PreferredLanguage(ctx context.Context, contentID string) (string, error)
}

// Options configures a Controller.
type Options struct {
	Source    source.Source
	Backup    source.Backup
	Details   Details
	Estimator *netquality.Estimator
	Selector  *failover.Selector

	MaxAttempts int
	BaseDelay   time.Duration

	// OnChange observes every state change.
	OnChange func(State)
	// Record is called after each successful resolution.
	Record func(history.Record) error
}

// Controller is safe for concurrent use. Only the most recent resolution
// may publish its result.
type Controller struct {
	src       source.Source
	backup    source.Backup
	details   Details
	estimator *netquality.Estimator
	selector  *failover.Selector

	maxAttempts int
	baseDelay   time.Duration
	onChange    func(State)
	record      func(history.Record) error

	token   atomic.Uint64
	fetchMu sync.Mutex

	mu        sync.Mutex
	cancel    context.CancelFunc
	contentID string
	prefs     Preferences
	current   source.Mirror
	state     State
}

// New creates a Controller. Source is required.
func New(opts Options) *Controller {
	c := &Controller{
		src:         opts.Source,
		backup:      opts.Backup,
		details:     opts.Details,
		estimator:   opts.Estimator,
		selector:    opts.Selector,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
		onChange:    opts.OnChange,
		record:      opts.Record,
	}

	if c.estimator == nil {
		c.estimator = netquality.New()
	}
	if c.selector == nil {
		c.selector = failover.New()
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.baseDelay <= 0 {
		c.baseDelay = DefaultBaseDelay
	}

	return c
}

// Estimator exposes the network estimator fed by this controller.
func (c *Controller) Estimator() *netquality.Estimator {
	return c.estimator
}

// State returns the latest published state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close cancels any in-flight resolution.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.token.Add(1)
}

// Resolve turns contentID into a playable stream. A different contentID
// than the previous call starts a new session: in-flight work is cancelled
// and failover and network history are discarded. The only failure
// surfaced for exhausted sources is source.ErrNoSources.
func (c *Controller) Resolve(ctx context.Context, contentID string, prefs Preferences) (State, error) {
	ctx, cancel, token := c.begin(ctx, contentID, prefs)
	defer cancel()

	logger := log.WithFields(log.Fields{"content": contentID, "session": token})

	if !c.estimator.Online() {
		logger.Info("offline, skipping resolution")
		return c.finish(token, State{Offline: true}, source.ErrOffline)
	}

	language := prefs.Language
	if language == "" && c.details != nil {
		preferred, err := c.details.PreferredLanguage(ctx, contentID)
		if err != nil {
			logger.Debugf("details lookup failed: %v", err)
		} else {
			language = preferred
		}
	}

	cat, err := c.loadCatalog(ctx, token, contentID, language)
	if err != nil {
		if errors.Is(err, ErrStaleSession) {
			return State{}, err
		}
		logger.Warnf("mirror discovery failed: %v", err)
		return c.fallback(ctx, token, contentID, prefs, false, err)
	}

	if matched, ok := cat.MatchLanguage(language); ok {
		language = matched
	}

	return c.walk(ctx, token, cat, contentID, language, prefs)
}

// ReportPlaybackError marks the mirror being played as failed and resolves
// the same content again.
func (c *Controller) ReportPlaybackError(ctx context.Context) (State, error) {
	c.mu.Lock()
	contentID, prefs, current := c.contentID, c.prefs, c.current
	c.mu.Unlock()

	if contentID == "" {
		return State{}, errors.New("no active session")
	}

	if current.ManifestRef != "" {
		log.WithFields(log.Fields{"content": contentID, "mirror": current.String()}).Warn("playback failed")
		c.selector.MarkFailed(current.ManifestRef, "playback")
	}

	return c.Resolve(ctx, contentID, prefs)
}

// ReportBufferState forwards the player's buffered end and position, in
// seconds.
func (c *Controller) ReportBufferState(bufferEnd, current float64) State {
	c.estimator.RecordBufferState(bufferEnd, current)
	return c.refresh()
}

// ReportStall forwards a playback stall.
func (c *Controller) ReportStall(d time.Duration) State {
	c.estimator.RecordStall(d)
	return c.refresh()
}

// ReportBuffering forwards a buffering event.
func (c *Controller) ReportBuffering() State {
	c.estimator.RecordBuffering()
	return c.refresh()
}

// ReportSample forwards a network measurement.
func (c *Controller) ReportSample(s netquality.Sample) State {
	c.estimator.RecordSample(s)
	return c.refresh()
}

// SetOnline records connectivity. Going offline does not cancel a stream
// that is already playing.
func (c *Controller) SetOnline(online bool) State {
	c.estimator.SetOnline(online)
	return c.refresh()
}

func (c *Controller) begin(parent context.Context, contentID string, prefs Preferences) (context.Context, context.CancelFunc, uint64) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	token := c.token.Add(1)

	if contentID != c.contentID {
		c.contentID = contentID
		c.selector.ContentChanged(contentID)
		c.estimator.Reset()
	}
	c.current = source.Mirror{}
	c.prefs = prefs
	c.state = State{ContentID: contentID, Loading: true, Tier: c.state.Tier, Score: c.state.Score}
	state := c.state
	c.mu.Unlock()

	c.notify(state)
	return ctx, cancel, token
}

// loadCatalog discovers mirrors on every resolution. The source's cache
// decides how long a discovery result is reused.
func (c *Controller) loadCatalog(ctx context.Context, token uint64, contentID, language string) (*catalog.Catalog, error) {
	mirrors, err := c.src.FindMirrors(ctx, contentID, language)
	if staleErr := c.checkStale(ctx, token); staleErr != nil {
		return nil, staleErr
	}
	if err != nil {
		return nil, err
	}

	cat := catalog.Build(mirrors)
	if cat.Len() == 0 {
		return nil, fmt.Errorf("%w: no mirrors for %s", source.ErrSourceUnavailable, contentID)
	}
	return cat, nil
}

// walk tries mirrors until one yields a playable file. Seeing the same
// mirror twice within one walk means every candidate has been tried.
func (c *Controller) walk(ctx context.Context, token uint64, cat *catalog.Catalog, contentID, language string, prefs Preferences) (State, error) {
	tried := make(map[string]struct{})
	exhausted := false

	for {
		if err := c.checkStale(ctx, token); err != nil {
			return State{}, err
		}

		res, err := c.selector.Select(cat, language, prefs.Quality)
		if err != nil {
			return c.fallback(ctx, token, contentID, prefs, true, err)
		}
		if res.Reset {
			exhausted = true
		}

		mirror := res.Mirror
		if _, seen := tried[mirror.ManifestRef]; seen {
			return c.fallback(ctx, token, contentID, prefs, true, source.ErrExhausted)
		}
		tried[mirror.ManifestRef] = struct{}{}

		c.mu.Lock()
		c.current = mirror
		c.mu.Unlock()

		logger := log.WithFields(log.Fields{"content": contentID, "mirror": mirror.String()})

		manifest, err := c.fetchManifest(ctx, mirror.ManifestRef)
		if err != nil {
			if staleErr := c.checkStale(ctx, token); staleErr != nil {
				return State{}, staleErr
			}
			logger.Warnf("giving up on mirror: %v", err)
			c.selector.MarkFailed(mirror.ManifestRef, "manifest")
			continue
		}

		video, err := catalog.PickVideoFile(manifest)
		if err != nil {
			logger.Warn(err)
			c.selector.MarkFailed(mirror.ManifestRef, "no-playable-file")
			continue
		}

		logger.Infof("resolved %s", video.Name)
		return c.finish(token, State{
			Language:  mirror.Language,
			Quality:   mirror.Quality,
			StreamURL: c.src.ResolveStreamURL(mirror.ManifestRef, video.FileID),
			Mirror:    mirror,
			Video:     video,
			Exhausted: exhausted,
		}, nil)
	}
}

// fallback consults the backup provider after the primary catalog failed.
func (c *Controller) fallback(ctx context.Context, token uint64, contentID string, prefs Preferences, exhausted bool, cause error) (State, error) {
	c.mu.Lock()
	c.current = source.Mirror{}
	c.mu.Unlock()

	if c.backup == nil {
		return c.finish(token, State{Exhausted: true}, fmt.Errorf("%w: %v", source.ErrNoSources, cause))
	}

	streams, err := c.backup.Streams(ctx, contentID)
	if err == nil && len(streams) == 0 {
		err = source.ErrSourceUnavailable
	}
	if staleErr := c.checkStale(ctx, token); staleErr != nil {
		return State{}, staleErr
	}
	if err != nil {
		log.WithFields(log.Fields{"content": contentID}).Warnf("backup failed: %v", err)
		return c.finish(token, State{Exhausted: true}, fmt.Errorf("%w: %v", source.ErrNoSources, errors.Join(cause, err)))
	}

	stream := pickStream(streams, prefs)
	log.WithFields(log.Fields{"content": contentID, "quality": stream.Quality}).Info("using backup stream")
	return c.finish(token, State{
		Language:  stream.Language,
		Quality:   stream.Quality,
		StreamURL: stream.URL,
		Backup:    true,
		Exhausted: exhausted,
	}, nil)
}

// pickStream prefers an exact quality and language match, then quality,
// then the first stream offered.
func pickStream(streams []source.BackupStream, prefs Preferences) source.BackupStream {
	if s, ok := lo.Find(streams, func(s source.BackupStream) bool {
		return s.Quality == prefs.Quality && (prefs.Language == "" || s.Language == prefs.Language)
	}); ok {
		return s
	}
	if s, ok := lo.Find(streams, func(s source.BackupStream) bool {
		return s.Quality == prefs.Quality
	}); ok {
		return s
	}
	return streams[0]
}

func (c *Controller) finish(token uint64, state State, err error) (State, error) {
	score, tier := c.estimator.Recommend()

	c.mu.Lock()
	if c.token.Load() != token {
		c.mu.Unlock()
		return State{}, ErrStaleSession
	}
	state.ContentID = c.contentID
	state.Score = score
	state.Tier = tier.String()
	if err != nil {
		state.Error = err.Error()
	}
	c.state = state
	c.mu.Unlock()

	c.notify(state)

	if err == nil && state.Playable() && c.record != nil {
		if recErr := c.record(history.Record{
			ContentID:   state.ContentID,
			ManifestRef: state.Mirror.ManifestRef,
			Language:    state.Language,
			Quality:     state.Quality,
			FileName:    state.Video.Name,
			StreamURL:   state.StreamURL,
			Backup:      state.Backup,
			ResolvedAt:  time.Now(),
		}); recErr != nil {
			log.Warnf("saving history: %v", recErr)
		}
	}

	return state, err
}

// refresh recomputes score and tier without touching the stream.
func (c *Controller) refresh() State {
	score, tier := c.estimator.Recommend()

	c.mu.Lock()
	c.state.Score = score
	c.state.Tier = tier.String()
	c.state.Offline = !c.estimator.Online()
	state := c.state
	c.mu.Unlock()

	c.notify(state)
	return state
}

func (c *Controller) checkStale(ctx context.Context, token uint64) error {
	if c.token.Load() != token {
		return ErrStaleSession
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (c *Controller) notify(state State) {
	if c.onChange != nil {
		c.onChange(state)
	}
}
