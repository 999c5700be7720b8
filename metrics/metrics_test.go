package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorders(t *testing.T) {
	Convey("Cache lookups are split by result", t, func() {
		before := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("test", "hit"))
		RecordCacheLookup("test", true)
		So(testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("test", "hit")), ShouldEqual, before+1)
	})

	Convey("Source requests record errors separately", t, func() {
		before := testutil.ToFloat64(SourceRequestsTotal.WithLabelValues("mirrors", "error"))
		RecordSourceRequest("mirrors", errors.New("boom"))
		So(testutil.ToFloat64(SourceRequestsTotal.WithLabelValues("mirrors", "error")), ShouldEqual, before+1)
	})

	Convey("Quality gauges hold the latest value", t, func() {
		RecordQuality(0.42, 2)
		So(testutil.ToFloat64(QualityScore), ShouldEqual, 0.42)
		So(testutil.ToFloat64(RecommendedTier), ShouldEqual, 2)
	})

	Convey("Handler exposes the registry", t, func() {
		RecordFailover("manifest")
		rec := httptest.NewRecorder()
		Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)
		So(string(body), ShouldContainSubstring, "anistream_failovers_total")
	})
}
