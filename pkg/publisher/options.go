// Package publisher defines the shared publishing model: per-target options,
// the dependency relation, the Publisher interface implemented by each
// platform driver, and the persisted result union consumed by the
// announcement stage.
package publisher

import (
	"fmt"
	"strings"
)

// DefaultMaxRetries bounds upload retries against transient server failures.
const DefaultMaxRetries = 3

// ReleaseType is the stability channel of a published file.
type ReleaseType string

const (
	ReleaseTypeStable ReleaseType = "stable"
	ReleaseTypeBeta   ReleaseType = "beta"
	ReleaseTypeAlpha  ReleaseType = "alpha"
)

// ParseReleaseType parses a release type name, case-insensitively.
func ParseReleaseType(value string) (ReleaseType, error) {
	switch ReleaseType(strings.ToLower(value)) {
	case ReleaseTypeStable:
		return ReleaseTypeStable, nil
	case ReleaseTypeBeta:
		return ReleaseTypeBeta, nil
	case ReleaseTypeAlpha:
		return ReleaseTypeAlpha, nil
	}
	return "", fmt.Errorf("invalid release type: %s. Must be one of: stable, beta, alpha", value)
}

// AdditionalFile is a secondary artifact uploaded alongside the primary file.
type AdditionalFile struct {
	Path string `yaml:"path" json:"path"`
	// Name overrides the display name reported to the platform. Optional.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// Options contains the fields shared by every platform target. A target's
// options are produced once, by merging the run-level defaults into the
// target's own values, and are immutable afterwards.
type Options struct {
	// File is the primary artifact path. Optional for GitHub targets.
	File string `yaml:"file,omitempty"`

	AdditionalFiles []AdditionalFile `yaml:"additionalFiles,omitempty"`

	// Version must be set before any upload begins.
	Version string `yaml:"version,omitempty"`

	DisplayName string `yaml:"displayName,omitempty"`

	// Changelog is raw text, markdown or HTML depending on the target.
	Changelog string `yaml:"changelog,omitempty"`

	Type ReleaseType `yaml:"releaseType,omitempty"`

	ModLoaders []string `yaml:"modLoaders,omitempty"`

	MaxRetries int `yaml:"maxRetries,omitempty"`

	AccessToken string `yaml:"accessToken,omitempty"`

	// AnnouncementTitle overrides the per-platform default title used by the
	// announcement stage.
	AnnouncementTitle string `yaml:"announcementTitle,omitempty"`

	// ResultsDir is the directory holding this run's per-target result files.
	// Populated by the loader, never from YAML. Drivers only read sibling
	// results from it (GitHub's parent-release mode).
	ResultsDir string `yaml:"-"`
}

// Merge returns a copy of o with every unset field filled in from defaults.
// There is no live link back to defaults: later changes to either value do
// not affect the result.
func (o Options) Merge(defaults Options) Options {
	merged := o

	if merged.File == "" {
		merged.File = defaults.File
	}
	if len(merged.AdditionalFiles) == 0 {
		merged.AdditionalFiles = append([]AdditionalFile(nil), defaults.AdditionalFiles...)
	}
	if merged.Version == "" {
		merged.Version = defaults.Version
	}
	if merged.DisplayName == "" {
		merged.DisplayName = defaults.DisplayName
	}
	if merged.Changelog == "" {
		merged.Changelog = defaults.Changelog
	}
	if merged.Type == "" {
		merged.Type = defaults.Type
	}
	if len(merged.ModLoaders) == 0 {
		merged.ModLoaders = append([]string(nil), defaults.ModLoaders...)
	}
	if merged.MaxRetries == 0 {
		merged.MaxRetries = defaults.MaxRetries
	}
	if merged.AccessToken == "" {
		merged.AccessToken = defaults.AccessToken
	}
	if merged.AnnouncementTitle == "" {
		merged.AnnouncementTitle = defaults.AnnouncementTitle
	}
	if merged.ResultsDir == "" {
		merged.ResultsDir = defaults.ResultsDir
	}

	if merged.MaxRetries == 0 {
		merged.MaxRetries = DefaultMaxRetries
	}
	if merged.DisplayName == "" {
		merged.DisplayName = merged.Version
	}

	return merged
}

// Validate checks the shared pre-flight invariants. It never touches the
// network.
func (o *Options) Validate(dryRun bool) error {
	if o.Version == "" {
		return &ConfigurationError{Message: `"version" not set`}
	}
	if !dryRun && o.AccessToken == "" {
		return &ConfigurationError{Message: `"accessToken" not set`}
	}
	if err := ValidateUnique("modLoaders", o.ModLoaders); err != nil {
		return err
	}
	return nil
}

// TitleOr returns the configured announcement title, or fallback when unset.
func (o *Options) TitleOr(fallback string) string {
	if o.AnnouncementTitle != "" {
		return o.AnnouncementTitle
	}
	return fallback
}

// ValidateUnique fails when values contains duplicates.
func ValidateUnique(field string, values []string) error {
	seen := make(map[string]bool, len(values))
	var duplicates []string
	for _, v := range values {
		if seen[v] {
			duplicates = append(duplicates, v)
		}
		seen[v] = true
	}

	if len(duplicates) > 0 {
		return &ConfigurationError{
			Message: fmt.Sprintf("%s contains duplicate values: %v", field, duplicates),
		}
	}
	return nil
}

// ConfigurationError reports an invalid target configuration. It is fatal and
// surfaced before any network call.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}
