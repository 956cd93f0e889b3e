package icon

import (
	"testing"

	"github.com/kinema-cli/kinema/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given every registered icon", t, func() {
		Convey("It renders for each variant", func() {
			for _, variant := range AvailableVariants() {
				viper.Set(key.IconsVariant, variant)
				for i := range icons {
					So(Get(i), ShouldNotBeEmpty)
				}
			}
		})

		Convey("It renders nothing for an unknown variant", func() {
			viper.Set(key.IconsVariant, "squares")
			So(Get(Play), ShouldBeEmpty)
		})

		Convey("It renders nothing for an unknown icon", func() {
			viper.Set(key.IconsVariant, plain)
			So(Get(Icon(999)), ShouldBeEmpty)
		})
	})
}
