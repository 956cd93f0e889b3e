package filesystem

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBackend(t *testing.T) {
	Convey("Given the in-memory backend", t, func() {
		SetMemMapFs()
		defer SetOsFs()

		So(API().Name(), ShouldEqual, "MemMapFS")
		So(Fs().Name(), ShouldEqual, "MemMapFS")

		Convey("GacheFs writes through it", func() {
			var fs GacheFs
			So(fs.MkdirAll("/cache", os.ModePerm), ShouldBeNil)

			f, err := fs.OpenFile("/cache/a.json", os.O_CREATE|os.O_RDWR, 0o644)
			So(err, ShouldBeNil)
			_, err = f.Write([]byte("{}"))
			So(err, ShouldBeNil)
			So(f.Close(), ShouldBeNil)

			exists, err := API().Exists("/cache/a.json")
			So(err, ShouldBeNil)
			So(exists, ShouldBeTrue)
		})
	})

	Convey("The default backend is the OS", t, func() {
		SetOsFs()
		So(API().Name(), ShouldEqual, "OsFs")
	})
}
