package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/taskdeck/internal/google"
)

func newAuthCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize taskdeck with Google",
		Long: `Run the Google OAuth consent flow and store the credential.

The stored credential covers Calendar and Gmail and is reused by the serve
and digest commands. Client credentials are read from GOOGLE_CLIENT_ID and
GOOGLE_CLIENT_SECRET (a local .env file is loaded at startup).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if google.HasToken() && !force {
				fmt.Println("Already authorized. Use --force to re-run the consent flow.")
				return nil
			}

			code, err := google.StdinConsent(ctx, google.GetAuthURL())
			if err != nil {
				return err
			}

			if err := google.SaveToken(ctx, code); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Authorization successful.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-run the consent flow even if a credential is stored")

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a Google credential is stored",
		Run: func(cmd *cobra.Command, args []string) {
			if google.HasToken() {
				fmt.Println("Authorized: a Google credential is stored.")
			} else {
				fmt.Println("Not authorized. Run 'taskdeck auth' to authorize.")
			}
		},
	})

	return cmd
}
