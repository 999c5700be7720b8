package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackend(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})

	Convey("GacheFs should write through the active backend", t, func() {
		SetMemMapFs()
		var fs GacheFs

		So(fs.MkdirAll("/journal", os.ModePerm), ShouldBeNil)
		f, err := fs.OpenFile("/journal/history.json", os.O_CREATE|os.O_WRONLY, 0o644)
		So(err, ShouldBeNil)
		_, err = f.Write([]byte("{}"))
		So(err, ShouldBeNil)
		So(f.Close(), ShouldBeNil)

		data, err := API().ReadFile("/journal/history.json")
		So(err, ShouldBeNil)
		So(string(data), ShouldEqual, "{}")
	})
}
