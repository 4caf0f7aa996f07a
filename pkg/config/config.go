// Package config loads the project publish configuration from modpub.yaml.
//
// The file declares run-level defaults, named targets grouped by platform,
// and the optional announcement section. Defaults are merged into each target
// exactly once at load time, producing immutable per-target options with no
// live link back to the defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/modpub/modpub/pkg/announce"
	"github.com/modpub/modpub/pkg/orchestrator"
	"github.com/modpub/modpub/pkg/publisher"
)

const (
	// ConfigFile is the name of the configuration file
	ConfigFile = "modpub.yaml"

	// DefaultOutputDir holds result files and dry-run staging output
	DefaultOutputDir = "build/modpub"
)

// file is the raw YAML document. Target sections stay as yaml nodes so each
// driver can decode its own platform-specific fields.
type file struct {
	DryRun   bool              `yaml:"dryRun,omitempty"`
	Defaults publisher.Options `yaml:"defaults"`
	Discord  *announce.Options `yaml:"discord,omitempty"`

	Curseforge map[string]yaml.Node `yaml:"curseforge,omitempty"`
	Modrinth   map[string]yaml.Node `yaml:"modrinth,omitempty"`
	Github     map[string]yaml.Node `yaml:"github,omitempty"`
}

// TargetConfig is one declared target before its driver is constructed.
type TargetConfig struct {
	Name string
	Kind publisher.Kind
	node yaml.Node
}

// Config is the loaded publish configuration.
type Config struct {
	DryRun   bool
	Defaults publisher.Options
	Targets  []TargetConfig
	Discord  *announce.Options

	// OutputDir holds per-target result files and dry-run staging copies.
	OutputDir string
}

// Load reads the configuration file at path. When path is empty, modpub.yaml
// is searched in the current directory and its parents.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path, err = findConfigPath(dir)
		if err != nil {
			return nil, err
		}
		if path == "" {
			return nil, fmt.Errorf("no %s found in %s or any parent directory", ConfigFile, dir)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses a configuration document.
func Parse(data []byte) (*Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{
		DryRun:    f.DryRun,
		Defaults:  f.Defaults,
		Discord:   f.Discord,
		OutputDir: DefaultOutputDir,
	}

	// Tokens and webhook URLs are usually given as ${ENV_VAR} references.
	cfg.Defaults.AccessToken = os.ExpandEnv(cfg.Defaults.AccessToken)
	if cfg.Discord != nil {
		cfg.Discord.WebhookURL = os.ExpandEnv(cfg.Discord.WebhookURL)
		cfg.Discord.DryRunWebhookURL = os.ExpandEnv(cfg.Discord.DryRunWebhookURL)
	}

	if cfg.Defaults.Type != "" {
		parsed, err := publisher.ParseReleaseType(string(cfg.Defaults.Type))
		if err != nil {
			return nil, err
		}
		cfg.Defaults.Type = parsed
	}

	sections := []struct {
		kind    publisher.Kind
		targets map[string]yaml.Node
	}{
		{publisher.KindCurseforge, f.Curseforge},
		{publisher.KindModrinth, f.Modrinth},
		{publisher.KindGithub, f.Github},
	}

	seen := make(map[string]bool)
	for _, section := range sections {
		names := make([]string, 0, len(section.targets))
		for name := range section.targets {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if seen[name] {
				return nil, fmt.Errorf("duplicate target name: %q", name)
			}
			seen[name] = true
			cfg.Targets = append(cfg.Targets, TargetConfig{
				Name: name,
				Kind: section.kind,
				node: section.targets[name],
			})
		}
	}

	return cfg, nil
}

// ResultPath returns the result slot of a named target.
func (c *Config) ResultPath(name string) string {
	return filepath.Join(c.OutputDir, "results", name+".json")
}

// StagingDir returns the directory dry runs copy artifacts into.
func (c *Config) StagingDir() string {
	return filepath.Join(c.OutputDir, "staging")
}

// BuildTargets constructs a driver per declared target. Each target's shared
// options are the run defaults overlaid with the target's own values.
func (c *Config) BuildTargets() ([]orchestrator.Target, error) {
	targets := make([]orchestrator.Target, 0, len(c.Targets))

	for _, tc := range c.Targets {
		factory := publisher.Lookup(tc.Kind)
		if factory == nil {
			return nil, fmt.Errorf("no driver registered for platform %q", tc.Kind)
		}

		var shared publisher.Options
		node := tc.node
		if err := node.Decode(&shared); err != nil {
			return nil, fmt.Errorf("invalid options for target %q: %w", tc.Name, err)
		}
		shared.AccessToken = os.ExpandEnv(shared.AccessToken)
		if shared.Type != "" {
			parsed, err := publisher.ParseReleaseType(string(shared.Type))
			if err != nil {
				return nil, fmt.Errorf("target %q: %w", tc.Name, err)
			}
			shared.Type = parsed
		}

		shared = shared.Merge(c.Defaults)
		shared.ResultsDir = filepath.Join(c.OutputDir, "results")

		pub, err := factory(tc.Name, shared, node.Decode)
		if err != nil {
			return nil, err
		}

		targets = append(targets, orchestrator.Target{
			Publisher:  pub,
			ResultPath: c.ResultPath(tc.Name),
		})
	}

	return targets, nil
}

// findConfigPath searches for modpub.yaml in dir and its parent directories.
// It returns the full path to the config file, or empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}
