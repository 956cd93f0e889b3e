package cmd

import (
	"os"
	"strings"

	"github.com/kinema-cli/kinema/auth"
	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/config"
	"github.com/kinema-cli/kinema/constant"
	"github.com/kinema-cli/kinema/style"
	"github.com/kinema-cli/kinema/where"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// envNames lists every environment variable kinema reads.
func envNames() []string {
	names := lo.Map(config.EnvExposed, func(key string, _ int) string {
		return strings.ToUpper(constant.Kinema + "_" + config.EnvKeyReplacer.Replace(key))
	})
	names = append(names, where.EnvConfigPath, auth.EnvToken)
	slices.Sort(names)
	return slices.Compact(names)
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolP("set-only", "s", false, "Only show variables that are set")
	envCmd.Flags().BoolP("unset-only", "u", false, "Only show variables that are unset")

	envCmd.MarkFlagsMutuallyExclusive("set-only", "unset-only")
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Run: func(cmd *cobra.Command, args []string) {
		setOnly := lo.Must(cmd.Flags().GetBool("set-only"))
		unsetOnly := lo.Must(cmd.Flags().GetBool("unset-only"))

		for _, env := range envNames() {
			value, present := os.LookupEnv(env)
			if (setOnly && !present) || (unsetOnly && present) {
				continue
			}

			cmd.Print(style.New().Bold(true).Foreground(color.Purple).Render(env), "=")
			if env == auth.EnvToken && present {
				value = "********"
			}

			if present {
				cmd.Println(style.Fg(color.Green)(value))
			} else {
				cmd.Println(style.Fg(color.Red)("unset"))
			}
		}
	},
}
