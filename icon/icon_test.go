package icon

import (
	"testing"

	"github.com/anisan-cli/anistream/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given a registered icon", t, func() {
		target := Mirror

		Convey("It renders for each variant", func() {
			for _, variant := range AvailableVariants() {
				Convey("variant="+variant, func() {
					viper.Set(key.IconsVariant, variant)
					So(Get(target), ShouldNotBeEmpty)
				})
			}
		})

		Convey("An unknown variant falls back to plain", func() {
			viper.Set(key.IconsVariant, plain)
			expected := Get(target)

			viper.Set(key.IconsVariant, "")
			So(Get(target), ShouldEqual, expected)
		})
	})

	Convey("Every icon has a glyph in every variant", t, func() {
		for i, def := range icons {
			for _, variant := range AvailableVariants() {
				So(def.render(variant), ShouldNotBeEmpty)
			}
			So(Get(i), ShouldNotBeEmpty)
		}
	})

	Convey("An unregistered icon renders empty", t, func() {
		So(Get(Icon(-1)), ShouldBeEmpty)
	})
}
