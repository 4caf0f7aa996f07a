package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/modpub/modpub/pkg/announce"
	"github.com/modpub/modpub/pkg/config"
)

var announceDryRun bool

var announceCmd = &cobra.Command{
	Use:   "announce [target...]",
	Short: "Send the Discord announcement for an earlier publish run",
	Long: `Send the Discord announcement using the result files written by a
previous publish run. Without arguments every configured target's result is
announced; passing target names restricts the announcement to those targets.

Examples:
  modpub announce
  modpub announce curseforge modrinth`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cfg.Discord == nil {
			return fmt.Errorf("no discord section configured in %s", config.ConfigFile)
		}

		names := args
		if len(names) == 0 {
			for _, tc := range cfg.Targets {
				names = append(names, tc.Name)
			}
		}
		if len(names) == 0 {
			return fmt.Errorf("no targets configured")
		}

		paths := make([]string, 0, len(names))
		for _, name := range names {
			paths = append(paths, cfg.ResultPath(name))
		}

		results, err := announce.ReadResults(paths)
		if err != nil {
			return fmt.Errorf("failed to read publish results: %w", err)
		}

		announcer := announce.New(*cfg.Discord, announce.WithLogger(logrus.StandardLogger()))
		dryRun := cfg.DryRun || announceDryRun
		if err := announcer.Announce(cmd.Context(), results, dryRun); err != nil {
			return fmt.Errorf("announcement failed: %w", err)
		}

		return nil
	},
}

func init() {
	announceCmd.Flags().BoolVar(&announceDryRun, "dry-run", false, "Send to the dry-run webhook instead of the real one")
	rootCmd.AddCommand(announceCmd)
}
