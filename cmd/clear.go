package cmd

import (
	"fmt"

	"github.com/kinema-cli/kinema/filesystem"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/util"
	"github.com/kinema-cli/kinema/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type clearTarget struct {
	name  string
	flag  string
	short string
	clear func() error
}

func removeAll(path func() string) func() error {
	return func() error {
		return filesystem.API().RemoveAll(path())
	}
}

var clearTargets = []clearTarget{
	{"cache directory", "cache", "c", removeAll(where.Cache)},
	{"watch history", "history", "s", history.Clear},
	{"report queue", "queue", "q", removeAll(where.Queue)},
	{"temp directory", "temp", "t", removeAll(where.Temp)},
}

func init() {
	rootCmd.AddCommand(clearCmd)

	for _, target := range clearTargets {
		clearCmd.Flags().BoolP(target.flag, target.short, false, "clear "+target.name)
	}
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached and stored data",
	Run: func(cmd *cobra.Command, args []string) {
		var cleared bool

		for _, target := range clearTargets {
			if !lo.Must(cmd.Flags().GetBool(target.flag)) {
				continue
			}

			cleared = true
			erase := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Buffering), target.name))
			err := target.clear()
			erase()
			handleErr(err)

			fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
		}

		if !cleared {
			handleErr(cmd.Help())
		}
	},
}
