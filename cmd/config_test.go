package cmd

import (
	"testing"
	"time"

	"github.com/anisan-cli/anistream/config"
	"github.com/anisan-cli/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseValue(t *testing.T) {
	Convey("parseValue follows the type of the default", t, func() {
		Convey("Durations", func() {
			v, err := parseValue(config.Default[key.FailoverBaseDelay], []string{"2s"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 2*time.Second)

			_, err = parseValue(config.Default[key.FailoverBaseDelay], []string{"soon"})
			So(err, ShouldNotBeNil)
		})

		Convey("Floats", func() {
			v, err := parseValue(config.Default[key.NetworkDefaultBandwidth], []string{"12.5"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 12.5)
		})

		Convey("Integers", func() {
			v, err := parseValue(config.Default[key.FailoverMaxAttempts], []string{"3"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 3)

			_, err = parseValue(config.Default[key.FailoverMaxAttempts], []string{"three"})
			So(err, ShouldNotBeNil)
		})

		Convey("Booleans", func() {
			v, err := parseValue(config.Default[key.HistorySaveOnResolve], []string{"false"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, false)
		})

		Convey("Strings", func() {
			v, err := parseValue(config.Default[key.PlaybackQuality], []string{"720p"})
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "720p")
		})
	})

	Convey("Unknown keys suggest the closest one", t, func() {
		So(errUnknownKey("failover.max_attempt").Error(), ShouldContainSubstring, key.FailoverMaxAttempts)
	})
}
