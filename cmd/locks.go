package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/giantswarm/locksmith/internal/config"
	"github.com/giantswarm/locksmith/internal/lockstore"
	pkgstrings "github.com/giantswarm/locksmith/pkg/strings"
)

// newLocksCmd creates the command that prints the lock store.
func newLocksCmd() *cobra.Command {
	var configPath, dataDir string

	cmd := &cobra.Command{
		Use:   "locks",
		Short: "Show the lock records",
		Long:  `Prints one row per locked group from the lock store. The store is read, never written.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataDir == "" {
				cfg, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				dataDir = cfg.DataDir
			}

			path := config.LocksmithConfig{DataDir: dataDir}.StorePath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", text.FgYellow.Sprintf("No lock store at %s", path))
				return nil
			}

			records, err := lockstore.New(path, config.DefaultNickname).Load()
			if err != nil {
				return err
			}
			renderLocks(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config-path", ".", "Directory holding config.yaml and .env")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the lock store")
	return cmd
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func renderLocks(out io.Writer, records lockstore.Records) {
	if len(records) == 0 {
		fmt.Fprintln(out, text.FgYellow.Sprint("No targets in the lock store"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"TARGET", "NICK LOCK", "NICKNAME", "OVERRIDES", "TITLE LOCK", "TITLE", "COUNT", "COOLDOWN"})

	for _, id := range records.Targets() {
		rec := records[id]
		cooldown := ""
		if rec.CooldownActive {
			cooldown = "active"
		}
		t.AppendRow(table.Row{
			id,
			onOff(rec.Enabled),
			pkgstrings.OrDash(pkgstrings.Truncate(rec.Nickname, pkgstrings.DefaultCellMaxLen)),
			strconv.Itoa(len(rec.NicknameOverrides)),
			onOff(rec.TitleLockEnabled),
			pkgstrings.OrDash(pkgstrings.Truncate(rec.LockedTitle, pkgstrings.DefaultCellMaxLen)),
			strconv.Itoa(rec.ChangeCount),
			pkgstrings.OrDash(cooldown),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "TOTAL", len(records), ""})
	t.Render()
}
