package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/history"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/playback"
	"github.com/kinema-cli/kinema/player"
	"github.com/kinema-cli/kinema/scrobble"
	"github.com/kinema-cli/kinema/session"
	"github.com/kinema-cli/kinema/tui"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("audio", "a", "", "Preferred audio track, by language or name")
	playCmd.Flags().StringP("subtitle", "t", "", "Subtitle track to show, by language or name")
	playCmd.Flags().BoolP("json", "j", false, "Print session state as JSON lines instead of the interface")
	playCmd.Flags().BoolP("continue", "c", false, "Play the most recently watched item")
	playCmd.Flags().Bool("no-resume", false, "Start from the beginning")

	playCmd.Flags().Bool("adaptive", true, "Use the built-in HLS engine")
	lo.Must0(viper.BindPFlag(key.StreamAdaptive, playCmd.Flags().Lookup("adaptive")))
}

var playCmd = &cobra.Command{
	Use:   "play [item-id]",
	Short: "Play an item from the media server",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		CheckDependencies()

		client, err := newClient()
		handleErr(err)

		itemID, err := playTarget(cmd, args)
		handleErr(err)

		reconcile(client)

		prefs := tui.Preferences{
			Audio:    lo.Must(cmd.Flags().GetString("audio")),
			Subtitle: lo.Must(cmd.Flags().GetString("subtitle")),
		}
		resume := !lo.Must(cmd.Flags().GetBool("no-resume"))

		surface := player.NewMPV()
		handleErr(surface.Launch(constant.Kinema))

		launcher := newLauncher(client, surface, prefs, resume)

		if lo.Must(cmd.Flags().GetBool("json")) {
			err = runHeadless(context.Background(), launcher.Launch, itemID, launcher.AutoAdvance, cmd.OutOrStdout())
		} else {
			err = tui.Run(&tui.Options{
				ItemID:   itemID,
				Launch:   launcher.Launch,
				SeekStep: viper.GetFloat64(key.PlayerSeekStep),
			})
		}

		_ = surface.Close()
		handleErr(err)
	},
}

func playTarget(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	if !lo.Must(cmd.Flags().GetBool("continue")) {
		return "", errors.New("an item id or --continue is required")
	}

	entries, err := history.List()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("history is empty")
	}

	return entries[0].ItemID, nil
}

// reconcile replays stopped reports from earlier offline sessions.
func reconcile(client scrobble.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := scrobble.Reconcile(ctx, client); err != nil {
		log.Warnf("reconcile playback reports: %s", err)
	}
}

// runHeadless plays itemID and writes every state as one JSON report per line,
// following auto-advance until playback ends, fails or the process is interrupted.
func runHeadless(ctx context.Context, launch tui.LaunchFunc, itemID string, autoAdvance bool, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	encoder := json.NewEncoder(w)

	for {
		advance := make(chan session.Handoff, 1)
		s, err := launch(ctx, itemID, func(next session.Handoff) {
			select {
			case advance <- next:
			default:
			}
		})
		if err != nil {
			return err
		}

		done := make(chan playback.State, 1)
		sub := s.Controls.Subscribe(func(state playback.State) {
			if err := encoder.Encode(state.Report()); err != nil {
				log.Warnf("encode state: %s", err)
			}

			if state.Phase.Terminal() {
				select {
				case done <- state:
				default:
				}
			}
		})

		next, err := waitHeadless(ctx, done, advance, autoAdvance)
		sub.Unsubscribe()
		s.Close()

		if err != nil {
			return err
		}

		item, ok := next.Get()
		if !ok {
			return nil
		}
		itemID = item.ItemID
	}
}

func waitHeadless(ctx context.Context, done <-chan playback.State, advance <-chan session.Handoff, autoAdvance bool) (mo.Option[session.Handoff], error) {
	none := mo.None[session.Handoff]()

	select {
	case <-ctx.Done():
		return none, nil
	case next := <-advance:
		return mo.Some(next), nil
	case state := <-done:
		if state.Phase == playback.Failed {
			if state.Failure == playback.ErrSurfaceClosed.Error() {
				return none, nil
			}
			return none, errors.New(state.Failure)
		}

		if !autoAdvance || state.Next.IsAbsent() {
			return none, nil
		}
	}

	select {
	case <-ctx.Done():
		return none, nil
	case next := <-advance:
		return mo.Some(next), nil
	}
}
