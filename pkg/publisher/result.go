package publisher

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Kind identifies a distribution platform.
type Kind string

const (
	KindCurseforge Kind = "curseforge"
	KindModrinth   Kind = "modrinth"
	KindGithub     Kind = "github"
)

// Brand colors used for announcement embeds.
const (
	BrandColorCurseforge = 0xF16436
	BrandColorModrinth   = 0x1BD96A
	BrandColorGithub     = 0xF6F0FC
)

// Result is the uniform outcome of a successful upload. It is a closed union:
// exactly one variant exists per platform kind. A failed upload never produces
// a Result.
type Result interface {
	// Kind returns the platform that produced this result.
	Kind() Kind

	// Title returns the announcement title configured for the target.
	Title() string

	// BrandColor returns the platform's embed color.
	BrandColor() int

	// Link computes the public URL of the uploaded file from the variant's
	// native identifiers. It can fail when the identifiers are insufficient
	// to build a link, so it is computed at the point of use rather than
	// stored.
	Link() (string, error)
}

// CurseforgeResult identifies a file uploaded to CurseForge.
type CurseforgeResult struct {
	ProjectID string `json:"projectId"`
	// ProjectSlug is optional; without it no public link can be built.
	ProjectSlug  string `json:"projectSlug,omitempty"`
	FileID       int    `json:"fileId"`
	DisplayTitle string `json:"title"`
}

func (r *CurseforgeResult) Kind() Kind      { return KindCurseforge }
func (r *CurseforgeResult) Title() string   { return r.DisplayTitle }
func (r *CurseforgeResult) BrandColor() int { return BrandColorCurseforge }

func (r *CurseforgeResult) Link() (string, error) {
	if r.ProjectSlug == "" {
		return "", fmt.Errorf("the CurseForge projectSlug option must be set to generate a link to the uploaded file")
	}
	return fmt.Sprintf("https://curseforge.com/minecraft/mc-mods/%s/files/%d", r.ProjectSlug, r.FileID), nil
}

// ModrinthResult identifies a version created on Modrinth.
type ModrinthResult struct {
	VersionID    string `json:"id"`
	ProjectID    string `json:"projectId"`
	DisplayTitle string `json:"title"`
}

func (r *ModrinthResult) Kind() Kind      { return KindModrinth }
func (r *ModrinthResult) Title() string   { return r.DisplayTitle }
func (r *ModrinthResult) BrandColor() int { return BrandColorModrinth }

func (r *ModrinthResult) Link() (string, error) {
	return fmt.Sprintf("https://modrinth.com/mod/%s/version/%s", r.ProjectID, r.VersionID), nil
}

// GithubResult identifies a GitHub release.
type GithubResult struct {
	Repository   string `json:"repository"`
	ReleaseID    int64  `json:"releaseId"`
	URL          string `json:"url"`
	DisplayTitle string `json:"title"`
}

func (r *GithubResult) Kind() Kind      { return KindGithub }
func (r *GithubResult) Title() string   { return r.DisplayTitle }
func (r *GithubResult) BrandColor() int { return BrandColorGithub }

func (r *GithubResult) Link() (string, error) {
	return r.URL, nil
}

// MarshalResult serializes a result with its "type" discriminator.
func MarshalResult(result Result) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	fields["type"] = string(result.Kind())

	return json.MarshalIndent(fields, "", "  ")
}

// UnmarshalResult deserializes a result by its "type" discriminator. Unknown
// fields are ignored so older readers keep working.
func UnmarshalResult(data []byte) (Result, error) {
	var envelope struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse result: %w", err)
	}

	var result Result
	switch envelope.Type {
	case KindCurseforge:
		result = &CurseforgeResult{}
	case KindModrinth:
		result = &ModrinthResult{}
	case KindGithub:
		result = &GithubResult{}
	default:
		return nil, fmt.Errorf("unknown result type: %q", envelope.Type)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", envelope.Type, err)
	}

	return result, nil
}

// WriteResult writes a result to path, creating parent directories. Result
// files are write-once: a publish run writes each target's file exactly once.
func WriteResult(path string, result Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create result directory: %w", err)
	}

	data, err := MarshalResult(result)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}

	return nil
}

// ReadResult reads a single persisted result file.
func ReadResult(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	return UnmarshalResult(data)
}
