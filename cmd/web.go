package cmd

import (
	"context"

	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/open"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(webCmd)
	webCmd.Flags().BoolP("print", "p", false, "Print the link instead of opening it")
}

var webCmd = &cobra.Command{
	Use:   "web <item-id>",
	Short: "Open an item in the server's web client",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		link, err := open.WebURL(viper.GetString(key.ServerURL), args[0])
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("print")) {
			cmd.Println(link)
			return
		}

		handleErr(open.Browser(context.Background(), link))
	},
}
