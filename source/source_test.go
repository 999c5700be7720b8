package source

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMirror(t *testing.T) {
	Convey("Mirror", t, func() {
		m := Mirror{Language: "es", Quality: "1080p", ManifestRef: "abc"}
		So(m.String(), ShouldEqual, "es/1080p (abc)")
	})
}

func TestVideo(t *testing.T) {
	Convey("Video", t, func() {
		v := Video{Name: "movie.mkv", Quality: "720p"}

		Convey("String prefers the quality label", func() {
			So(v.String(), ShouldEqual, "720p")
			v.Quality = ""
			So(v.String(), ShouldEqual, "movie.mkv")
		})
	})
}

func TestFailover(t *testing.T) {
	Convey("Given wrapped errors", t, func() {
		Convey("Manifest and playable-file failures trigger failover", func() {
			So(Failover(fmt.Errorf("%w: status 502", ErrManifestUnavailable)), ShouldBeTrue)
			So(Failover(fmt.Errorf("%w: only subtitles", ErrNoPlayableFile)), ShouldBeTrue)
		})

		Convey("Discovery failures do not", func() {
			So(Failover(fmt.Errorf("%w: timeout", ErrSourceUnavailable)), ShouldBeFalse)
			So(Failover(errors.New("boom")), ShouldBeFalse)
		})
	})
}
