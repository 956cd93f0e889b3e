package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/style"
	"github.com/kinema-cli/kinema/util"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolP("json", "j", false, "Print the history as JSON")

	historyCmd.AddCommand(historyRemoveCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show local resume positions, most recent first",
	Run: func(cmd *cobra.Command, args []string) {
		entries, err := history.List()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(entries))
			return
		}

		if len(entries) == 0 {
			cmd.Println(style.Faint("No history yet"))
			return
		}

		for _, e := range entries {
			cmd.Printf("%s %s %s\n",
				style.Fg(color.Yellow)(e.ItemID),
				e.Title,
				style.Faint(fmt.Sprintf("%s / %s", util.FormatDuration(e.Position), util.FormatDuration(e.Duration))),
			)
		}

		cmd.Println()
		cmd.Println(style.Faint(util.Quantify(len(entries), "entry", "entries")))
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:     "remove <item-id>",
	Aliases: []string{"rm"},
	Short:   "Forget the resume position of an item",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		handleErr(history.Remove(args[0]))
		fmt.Printf("%s removed %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), args[0])
	},
}
