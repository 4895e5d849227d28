package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/locksmith/internal/app"
	"github.com/giantswarm/locksmith/internal/config"
)

// newCheckCmd creates the command that validates a deployment without
// logging in.
func newCheckCmd() *cobra.Command {
	var configPath, dataDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration, session blob and lock store",
		Long: `Loads the configuration, the session blob and the lock store exactly as
'locksmith run' would, and reports every problem found. Nothing is written
and no login is attempted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Fprintf(out, "✗ configuration: %v\n", err)
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			fmt.Fprintln(out, "✓ configuration")

			records, problems := app.Validate(cfg)
			for _, p := range problems {
				fmt.Fprintf(out, "✗ %v\n", p)
			}
			if len(problems) > 0 {
				return &checkFailedError{problems: len(problems)}
			}

			fmt.Fprintf(out, "✓ session blob\n✓ lock store (%d targets)\n", len(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config-path", ".", "Directory holding config.yaml and .env")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the lock store and session blob")
	return cmd
}
