package netquality

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func mbps(values ...float64) []Sample {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Bandwidth: v * 1e6, Class: "wifi"}
	}
	return samples
}

func TestEstimator(t *testing.T) {
	Convey("Given a fresh estimator", t, func() {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		e := New(WithClock(func() time.Time { return now }))

		Convey("It starts from the default bandwidth with full health", func() {
			snap := e.Snapshot()
			So(snap.Bandwidth, ShouldEqual, DefaultBandwidth)
			So(snap.Stability, ShouldEqual, 1)
			So(snap.BufferHealth, ShouldEqual, 1)
			So(snap.PlaybackStability, ShouldEqual, 1)
			So(snap.Online, ShouldBeTrue)
		})

		Convey("The first sample sets the estimate and later ones are smoothed", func() {
			e.RecordSample(Sample{Bandwidth: 10e6})
			So(e.Bandwidth(), ShouldEqual, 10e6)
			e.RecordSample(Sample{Bandwidth: 20e6})
			So(e.Bandwidth(), ShouldAlmostEqual, 13e6, 1)
		})

		Convey("History is bounded", func() {
			for i := 0; i < 25; i++ {
				e.RecordSample(Sample{Bandwidth: 5e6})
			}
			So(e.Snapshot().Samples, ShouldEqual, historySize)
		})

		Convey("Constant bandwidth is perfectly stable", func() {
			for _, s := range mbps(5, 5, 5, 5, 5) {
				e.RecordSample(s)
			}
			So(e.Snapshot().Stability, ShouldEqual, 1)
		})

		Convey("Oscillating bandwidth is unstable", func() {
			for _, s := range mbps(1, 9, 1, 9, 1) {
				e.RecordSample(s)
			}
			stability := e.Snapshot().Stability
			So(stability, ShouldBeLessThan, 0.5)
			So(stability, ShouldAlmostEqual, 0.067, 0.01)
		})

		Convey("Offline scores zero", func() {
			e.RecordSample(Sample{Bandwidth: 50e6})
			e.SetOnline(false)
			So(e.ComputeQuality(), ShouldEqual, 0)
		})

		Convey("Data saver pins the score", func() {
			e.RecordSample(Sample{Bandwidth: 50e6, DataSaver: true})
			So(e.ComputeQuality(), ShouldEqual, 0.4)
		})

		Convey("A healthy fast link scores high", func() {
			for _, s := range mbps(25, 25, 25) {
				e.RecordSample(s)
			}
			score, tier := e.Recommend()
			So(score, ShouldAlmostEqual, 1.0, 0.0001)
			So(tier, ShouldEqual, TierFull)
		})

		Convey("The score stays within bounds", func() {
			for _, s := range mbps(0, 0.2, 100, 0.1) {
				e.RecordSample(s)
				e.RecordBufferState(-5, 10)
				q := e.ComputeQuality()
				So(q, ShouldBeBetweenOrEqual, 0, 1)
			}
		})

		Convey("Buffer drops hit playback stability harder than recoveries help", func() {
			e.RecordBufferState(15, 0)
			snap := e.Snapshot()
			So(snap.BufferHealth, ShouldAlmostEqual, 0.5, 1e-9)
			So(snap.PlaybackStability, ShouldAlmostEqual, 0.85, 1e-9)

			e.RecordBufferState(30, 0)
			snap = e.Snapshot()
			So(snap.BufferHealth, ShouldEqual, 1)
			So(snap.PlaybackStability, ShouldAlmostEqual, 0.8575, 1e-9)
		})

		Convey("Negative lookahead floors buffer health at zero", func() {
			e.RecordBufferState(5, 10)
			So(e.Snapshot().BufferHealth, ShouldEqual, 0)
		})

		Convey("Short stalls are ignored", func() {
			e.RecordStall(100 * time.Millisecond)
			So(e.Snapshot().Stability, ShouldEqual, 1)

			e.RecordStall(300 * time.Millisecond)
			So(e.Snapshot().Stability, ShouldAlmostEqual, 0.85, 1e-9)
		})

		Convey("Buffering events roll off after a minute", func() {
			e.RecordBuffering()
			e.RecordBuffering()
			So(e.BufferingEvents(), ShouldEqual, 2)

			now = now.Add(61 * time.Second)
			e.RecordBuffering()
			So(e.BufferingEvents(), ShouldEqual, 1)
		})

		Convey("Reset restores the initial state but keeps connectivity", func() {
			e.RecordSample(Sample{Bandwidth: 1e6, DataSaver: true})
			e.SetOnline(false)
			e.Reset()
			So(e.Bandwidth(), ShouldEqual, DefaultBandwidth)
			So(e.Online(), ShouldBeFalse)
			snap := e.Snapshot()
			So(snap.Samples, ShouldEqual, 0)
			So(snap.DataSaver, ShouldBeFalse)
		})
	})

	Convey("The default bandwidth is configurable", t, func() {
		e := New(WithDefaultBandwidth(2e6))
		So(e.Bandwidth(), ShouldEqual, 2e6)
	})
}

func TestRecommendTier(t *testing.T) {
	Convey("The tier is the lower of score and bandwidth tiers", t, func() {
		So(RecommendTier(0.9, 20e6), ShouldEqual, TierFull)
		So(RecommendTier(0.9, 3e6), ShouldEqual, TierHD)
		So(RecommendTier(0.3, 20e6), ShouldEqual, TierLow)
		So(RecommendTier(0.5, 1.5e6), ShouldEqual, TierSD)
		So(RecommendTier(0.1, 0.1e6), ShouldEqual, TierLowest)
		So(TierHD.String(), ShouldEqual, "hd")
	})

	Convey("The bandwidth term is continuous across bands", t, func() {
		So(bandwidthTerm(1), ShouldAlmostEqual, 0.25, 1e-9)
		So(bandwidthTerm(2.5), ShouldAlmostEqual, 0.5, 1e-9)
		So(bandwidthTerm(15), ShouldAlmostEqual, 0.8, 1e-9)
		So(bandwidthTerm(20), ShouldAlmostEqual, 0.9, 1e-9)
		So(bandwidthTerm(25), ShouldAlmostEqual, 1, 1e-9)
		So(bandwidthTerm(40), ShouldEqual, 1)
	})
}
