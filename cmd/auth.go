package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/kinema-cli/kinema/auth"
	"github.com/kinema-cli/kinema/catalog"
	"github.com/kinema-cli/kinema/color"
	"github.com/kinema-cli/kinema/config"
	"github.com/kinema-cli/kinema/icon"
	"github.com/kinema-cli/kinema/key"
	"github.com/kinema-cli/kinema/log"
	"github.com/kinema-cli/kinema/style"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)

	authLoginCmd.Flags().StringP("username", "u", "", "Account name")
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the media server login",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the access token in the system keyring",
	Run: func(cmd *cobra.Command, args []string) {
		server := viper.GetString(key.ServerURL)
		if !cmd.Flags().Changed("server") {
			handleErr(survey.AskOne(&survey.Input{
				Message: "Server URL:",
				Default: server,
			}, &server, survey.WithValidator(survey.Required)))
		}

		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			handleErr(survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)))
		}

		var password string
		handleErr(survey.AskOne(&survey.Password{Message: "Password:"}, &password))

		deviceID, err := config.DeviceID()
		if err != nil {
			log.Warnf("persist device id: %s", err)
		}

		result, err := catalog.New(server, "", "", deviceID).Authenticate(context.Background(), username, password)
		handleErr(err)

		if result.AccessToken == "" {
			handleErr(errors.New("server returned no access token"))
		}

		handleErr(auth.SetToken(server, result.AccessToken))

		viper.Set(key.ServerURL, server)
		viper.Set(key.ServerUserID, result.User.ID)
		handleErr(config.Persist())

		fmt.Printf(
			"%s logged in to %s as %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(server),
			style.Fg(color.Yellow)(result.User.Name),
		)
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Run: func(cmd *cobra.Command, args []string) {
		server := viper.GetString(key.ServerURL)
		handleErr(auth.DeleteToken(server))
		fmt.Printf("%s logged out of %s\n", style.Fg(color.Green)(icon.Get(icon.Success)), server)
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored for the configured server",
	Run: func(cmd *cobra.Command, args []string) {
		server := viper.GetString(key.ServerURL)

		if _, err := auth.GetToken(server); err != nil {
			fmt.Printf("%s %s: %s\n", style.Fg(color.Red)(icon.Get(icon.Fail)), server, err)
			return
		}

		fmt.Printf("%s %s as user %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(server),
			style.Fg(color.Yellow)(viper.GetString(key.ServerUserID)),
		)
	},
}
