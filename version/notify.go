package version

import (
	"context"
	"fmt"
	"time"

	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/style"
	"github.com/kinema-cli/kinema/util"
	"github.com/spf13/viper"
)

// Notify prints a banner when a newer release exists. Lookup failures are silent.
func Notify() {
	if !viper.GetBool(key.CliVersionCheck) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	erase := util.PrintErasable(fmt.Sprintf("%s Checking for a new version...", icon.Get(icon.Buffering)))
	latest, err := Latest(ctx)
	erase()

	if err != nil {
		log.Debugf("version check: %s", err)
		return
	}

	if comp, err := Compare(latest, constant.Version); err != nil || comp <= 0 {
		return
	}

	fmt.Printf(`
%s New version is available %s %s
%s

`,
		style.Fg(color.Green)("▇▇▇"),
		style.Bold(latest),
		style.Faint(fmt.Sprintf("(You're on %s)", constant.Version)),
		style.Faint("https://github.com/kinema-cli/kinema/releases/tag/v"+latest),
	)
}
