package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tracksCmd)
	tracksCmd.Flags().BoolP("json", "j", false, "Print the tracks as JSON")
}

var tracksCmd = &cobra.Command{
	Use:   "tracks <item-id>",
	Short: "List the audio and subtitle tracks of an item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, err := newClient()
		handleErr(err)

		tracks, err := client.Tracks(context.Background(), args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(cmd.OutOrStdout()).Encode(tracks))
			return
		}

		for i, t := range []session.TrackType{session.Audio, session.Subtitle} {
			of := tracks.OfType(t)

			cmd.Println(style.New().Bold(true).Foreground(color.HiPurple).Render(t.String()))
			if len(of) == 0 {
				cmd.Println(style.Faint("  none"))
			}

			for _, tr := range of {
				line := fmt.Sprintf("  %s %s", style.Fg(color.Yellow)(fmt.Sprintf("%2d", tr.Index)), tr)
				if tr.IsDefault {
					line += " " + style.Faint("(default)")
				}
				cmd.Println(line)
			}

			if i == 0 {
				cmd.Println()
			}
		}
	},
}
