package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/giantswarm/locksmith/internal/app"
)

type runOptions struct {
	configPath string
	dataDir    string
	debug      bool
}

// newRunCmd creates the command that starts the agent.
func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the lock agent",
		Long: `Runs the agent until interrupted.

The agent logs in with the session blob from APPSTATE or <data-dir>/appstate.json,
loads the lock records from <data-dir>/groupData.json and keeps every locked
group converged. SIGINT and SIGTERM stop it gracefully: the session blob and the
lock records are saved before exit.

Configuration is read from <config-path>/config.yaml and <config-path>/.env,
and can be overridden by environment variables such as BOSS_UID,
NICKNAME_CHANGE_LIMIT or GROUP_NAME_REVERT_DELAY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config-path", ".", "Directory holding config.yaml and .env")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the lock store and session blob (overrides DATA_DIR)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	return cmd
}

func runAgent(parent context.Context, opts *runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(app.NewConfig(opts.debug, opts.configPath, opts.dataDir))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run(ctx)
}
