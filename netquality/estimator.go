// Package netquality turns network samples and player telemetry into a
// quality score and a recommended playback tier.
package netquality

import (
	"math"
	"sync"
	"time"

	"github.com/anisan-cli/anistream/metrics"
	"github.com/samber/lo"
)

const (
	historySize = 20
	alpha       = 0.3

	dropWeight     = 0.3
	recoveryWeight = 0.05

	stallThreshold = 250 * time.Millisecond
	stallPenalty   = 0.85

	bufferingWindow = time.Minute

	dataSaverScore = 0.4

	// DefaultBandwidth is assumed until the first sample arrives.
	DefaultBandwidth = 5e6
)

// Sample is one network measurement.
type Sample struct {
	At        time.Time
	Bandwidth float64 // bits per second
	RTT       time.Duration
	// Class is a connection label such as "wifi" or "4g".
	Class     string
	DataSaver bool
}

// Snapshot is a point-in-time view of the estimator.
type Snapshot struct {
	Bandwidth         float64 `json:"bandwidth"`
	Stability         float64 `json:"stability"`
	BufferHealth      float64 `json:"buffer_health"`
	PlaybackStability float64 `json:"playback_stability"`
	BufferingEvents   int     `json:"buffering_events"`
	Samples           int     `json:"samples"`
	Online            bool    `json:"online"`
	DataSaver         bool    `json:"data_saver"`
	Score             float64 `json:"score"`
	Tier              string  `json:"tier"`
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithDefaultBandwidth overrides the bandwidth assumed before any sample.
func WithDefaultBandwidth(bitsPerSecond float64) Option {
	return func(e *Estimator) {
		if bitsPerSecond > 0 {
			e.defaultBandwidth = bitsPerSecond
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Estimator) {
		e.now = now
	}
}

// Estimator is safe for concurrent use.
type Estimator struct {
	mu sync.Mutex

	now              func() time.Time
	defaultBandwidth float64

	samples           []Sample
	bandwidth         float64
	stability         float64
	bufferHealth      float64
	playbackStability float64
	buffering         []time.Time
	online            bool
	dataSaver         bool
}

// New returns an Estimator in its initial state.
func New(opts ...Option) *Estimator {
	e := &Estimator{
		now:              time.Now,
		defaultBandwidth: DefaultBandwidth,
		online:           true,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetLocked()
	return e
}

// Reset discards history and restores initial values. Connectivity is
// left untouched.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Estimator) resetLocked() {
	e.samples = make([]Sample, 0, historySize)
	e.bandwidth = e.defaultBandwidth
	e.stability = 1
	e.bufferHealth = 1
	e.playbackStability = 1
	e.buffering = nil
	e.dataSaver = false
}

// SetOnline records connectivity as reported by the host.
func (e *Estimator) SetOnline(online bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.online = online
}

// Online reports the last known connectivity.
func (e *Estimator) Online() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.online
}

// RecordSample appends s to the bounded history and updates the bandwidth
// estimate and its stability.
func (e *Estimator) RecordSample(s Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.At.IsZero() {
		s.At = e.now()
	}

	if len(e.samples) == historySize {
		e.samples = append(e.samples[:0], e.samples[1:]...)
	}
	e.samples = append(e.samples, s)
	e.dataSaver = s.DataSaver

	if len(e.samples) == 1 {
		e.bandwidth = s.Bandwidth
	} else {
		e.bandwidth = alpha*s.Bandwidth + (1-alpha)*e.bandwidth
	}

	e.stability = stabilityOf(lo.Map(e.samples, func(s Sample, _ int) float64 {
		return s.Bandwidth
	}))
}

// stabilityOf is one minus the coefficient of variation, floored at zero.
func stabilityOf(values []float64) float64 {
	mean := lo.Sum(values) / float64(len(values))
	if mean <= 0 {
		return 0
	}

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return math.Max(0, 1-math.Sqrt(variance)/mean)
}

// RecordBufferState updates buffer health from the player's buffered end
// and current position, both in seconds.
func (e *Estimator) RecordBufferState(bufferEnd, current float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ahead := bufferEnd - current
	e.bufferHealth = clamp(ahead / expectedBuffer(e.bandwidth))

	weight := recoveryWeight
	if e.bufferHealth < e.playbackStability {
		weight = dropWeight
	}
	e.playbackStability = weight*e.bufferHealth + (1-weight)*e.playbackStability
}

// expectedBuffer is the seconds of lookahead a healthy player keeps at the
// given bandwidth.
func expectedBuffer(bandwidth float64) float64 {
	switch mbps := bandwidth / 1e6; {
	case mbps < 2.5:
		return 15
	case mbps < 15:
		return 30
	default:
		return 60
	}
}

// RecordStall penalizes stability for stalls of at least 250ms.
func (e *Estimator) RecordStall(d time.Duration) {
	if d < stallThreshold {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stability *= stallPenalty
}

// RecordBuffering counts a buffering event in the rolling one minute window.
func (e *Estimator) RecordBuffering() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.buffering = append(e.pruneLocked(now), now)
}

// BufferingEvents returns the buffering events seen in the last minute.
func (e *Estimator) BufferingEvents() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.buffering = e.pruneLocked(e.now())
	return len(e.buffering)
}

func (e *Estimator) pruneLocked(now time.Time) []time.Time {
	return lo.Filter(e.buffering, func(t time.Time, _ int) bool {
		return now.Sub(t) < bufferingWindow
	})
}

// Bandwidth returns the smoothed bandwidth estimate in bits per second.
func (e *Estimator) Bandwidth() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bandwidth
}

// ComputeQuality returns a fresh score in [0,1].
func (e *Estimator) ComputeQuality() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeLocked()
}

func (e *Estimator) computeLocked() float64 {
	if !e.online {
		return 0
	}
	if e.dataSaver {
		return dataSaverScore
	}

	q := 0.8*bandwidthTerm(e.bandwidth/1e6) + 0.2*e.stability
	q = 0.7*q + 0.3*e.bufferHealth
	q = math.Min(q, e.playbackStability*1.2)
	return clamp(q)
}

func bandwidthTerm(mbps float64) float64 {
	switch {
	case mbps < 1:
		return 0.25 * math.Max(0, mbps)
	case mbps < 2.5:
		return 0.25 + 0.25*(mbps-1)/1.5
	case mbps < 15:
		return 0.5 + 0.3*(mbps-2.5)/12.5
	default:
		return math.Min(1, 0.8+0.2*(mbps-15)/10)
	}
}

// Recommend computes the score and tier together and publishes them.
func (e *Estimator) Recommend() (float64, Tier) {
	e.mu.Lock()
	score := e.computeLocked()
	bandwidth := e.bandwidth
	e.mu.Unlock()

	tier := RecommendTier(score, bandwidth)
	metrics.RecordQuality(score, int(tier))
	return score, tier
}

// Snapshot returns the current estimator state.
func (e *Estimator) Snapshot() Snapshot {
	score, tier := e.Recommend()

	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Bandwidth:         e.bandwidth,
		Stability:         e.stability,
		BufferHealth:      e.bufferHealth,
		PlaybackStability: e.playbackStability,
		BufferingEvents:   len(e.pruneLocked(e.now())),
		Samples:           len(e.samples),
		Online:            e.online,
		DataSaver:         e.dataSaver,
		Score:             score,
		Tier:              tier.String(),
	}
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
