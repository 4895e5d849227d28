package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/locksmith/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates the configuration could not be loaded or is invalid.
	ExitCodeConfigError = 2
	// ExitCodeCheckFailed indicates `locksmith check` found problems.
	ExitCodeCheckFailed = 3
)

// rootCmd represents the base command for the locksmith application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "locksmith",
	Short: "Keep group nicknames and titles locked",
	Long: `locksmith keeps the nicknames and titles of chat groups at the values
recorded in its lock store. Changes made by members are corrected at a
human pace, and a cooldown protects the account when a group keeps fighting
back.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "locksmith version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// checkFailedError reports problems found by `locksmith check`.
type checkFailedError struct {
	problems int
}

func (e *checkFailedError) Error() string {
	if e.problems == 1 {
		return "check found 1 problem"
	}
	return fmt.Sprintf("check found %d problems", e.problems)
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var checkFailed *checkFailedError
	if errors.As(err, &checkFailed) {
		return ExitCodeCheckFailed
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigError
	}
	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeConfigError
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newLocksCmd())
}
