package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/modpub/modpub/pkg/announce"
	"github.com/modpub/modpub/pkg/config"
	"github.com/modpub/modpub/pkg/orchestrator"

	// Register platform drivers.
	_ "github.com/modpub/modpub/pkg/publisher/curseforge"
	_ "github.com/modpub/modpub/pkg/publisher/github"
	_ "github.com/modpub/modpub/pkg/publisher/modrinth"
)

var (
	publishDryRun     bool
	publishNoAnnounce bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [target...]",
	Short: "Publish the configured artifacts",
	Long: `Publish the configured artifacts to every declared target.

Without arguments all targets run. Passing target names restricts the run
to those targets. After a fully successful run the Discord announcement is
sent when a discord section is configured.

Examples:
  modpub publish
  modpub publish curseforge modrinth
  modpub publish --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		dryRun := cfg.DryRun || publishDryRun

		targets, err := cfg.BuildTargets()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			targets, err = selectTargets(targets, args)
			if err != nil {
				return err
			}
		}
		if len(targets) == 0 {
			return fmt.Errorf("no targets configured; declare at least one curseforge, modrinth or github target in %s", config.ConfigFile)
		}

		opts := []orchestrator.RunnerOption{
			orchestrator.WithLogger(logrus.StandardLogger()),
		}
		if dryRun {
			opts = append(opts, orchestrator.WithDryRun(cfg.StagingDir()))
		}

		runner := orchestrator.NewRunner(targets, opts...)
		summary, runErr := runner.Run(cmd.Context())

		for _, outcome := range summary.Outcomes {
			entry := logrus.WithFields(logrus.Fields{
				"target":   outcome.Name,
				"platform": outcome.Kind,
			})
			if outcome.State == orchestrator.StateSucceeded {
				entry.Info("publish succeeded")
			} else {
				entry.WithError(outcome.Err).Error("publish failed")
			}
		}
		if runErr != nil {
			return runErr
		}

		if cfg.Discord == nil || publishNoAnnounce {
			return nil
		}

		results, err := announce.ReadResults(resultPaths(cfg, targets))
		if err != nil {
			return fmt.Errorf("failed to read publish results: %w", err)
		}

		announcer := announce.New(*cfg.Discord, announce.WithLogger(logrus.StandardLogger()))
		if err := announcer.Announce(cmd.Context(), results, dryRun); err != nil {
			return fmt.Errorf("announcement failed: %w", err)
		}

		return nil
	},
}

func selectTargets(targets []orchestrator.Target, names []string) ([]orchestrator.Target, error) {
	byName := make(map[string]orchestrator.Target, len(targets))
	for _, t := range targets {
		byName[t.Publisher.Name()] = t
	}

	selected := make([]orchestrator.Target, 0, len(names))
	for _, name := range names {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		selected = append(selected, t)
	}
	return selected, nil
}

func resultPaths(cfg *config.Config, targets []orchestrator.Target) []string {
	paths := make([]string, 0, len(targets))
	for _, t := range targets {
		paths = append(paths, t.ResultPath)
	}
	return paths
}

func init() {
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Validate and stage artifacts without uploading")
	publishCmd.Flags().BoolVar(&publishNoAnnounce, "no-announce", false, "Skip the Discord announcement")
	rootCmd.AddCommand(publishCmd)
}
