package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/taskdeck/internal/digest"
	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/google"
	"github.com/teemow/taskdeck/internal/notify"
)

func newDigestCmd() *cobra.Command {
	var (
		stateDir string
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Send the unfinished-task digest immediately",
		Long: `Send the unfinished-task digest immediately.

Unlike the nightly run, the manual digest includes today's tasks and does not
remove any day buckets. Notifications must be enabled and an address stored;
use the NOTIFY_TOGGLE command or the todo_notify_toggle tool to set them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			st, err := buildStore("file", stateDir)
			if err != nil {
				return err
			}

			loc, err := resolveLocation(timezone)
			if err != nil {
				return err
			}

			pref, err := st.Preference(ctx)
			if err != nil {
				return fmt.Errorf("failed to read notification preference: %w", err)
			}
			if !pref.Enabled || pref.Email == "" {
				return fmt.Errorf("notifications are disabled or no address is stored")
			}
			if !notify.ValidEmail(pref.Email) {
				return fmt.Errorf("stored address %q is not a valid email", pref.Email)
			}

			tokens := google.NewCachedTokenProvider(nil, nil, logger, nil)
			mailClient := gmail.NewClient(tokens, nil)

			scheduler := digest.NewScheduler(st, mailClient, loc, logger, nil)
			if err := scheduler.SendNow(ctx); err != nil {
				return fmt.Errorf("failed to send digest: %w", err)
			}

			fmt.Printf("Digest sent to %s\n", pref.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory for task storage (default: user config dir). Can also use TASKDECK_STATE_DIR env var.")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for day bucket boundaries (default: system timezone)")

	return cmd
}
