package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"release", "0.4.1", "locksmith version 0.4.1\n"},
		{"dev build", "dev-3f2c1a", "locksmith version dev-3f2c1a\n"},
		{"unset", "", "locksmith version \n"},
	}

	original := rootCmd.Version
	t.Cleanup(func() { rootCmd.Version = original })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.Version = tt.version

			cmd := newVersionCmd()
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.Run(cmd, nil)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// The subcommand and the --version flag must report the same line, since
// deployment scripts parse either.
func TestVersionFlagMatchesSubcommand(t *testing.T) {
	original := rootCmd.Version
	t.Cleanup(func() {
		rootCmd.Version = original
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	SetVersion("1.0.0-rc.2")

	run := func(args ...string) string {
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return buf.String()
	}

	sub := run("version")
	flag := run("--version")
	assert.Equal(t, "locksmith version 1.0.0-rc.2\n", sub)
	assert.Equal(t, sub, flag)
	assert.Equal(t, "1.0.0-rc.2", GetVersion())
}

func TestRootRegistersCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"version", "run", "check", "locks"} {
		assert.True(t, names[want], "missing %s command", want)
	}
}
