package modrinth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/minecraft"
	"github.com/modpub/modpub/pkg/publisher"
)

func init() {
	if err := publisher.Register(publisher.KindModrinth, New); err != nil {
		panic(err)
	}
}

// idPattern is the shape of a Modrinth project/version ID.
var idPattern = regexp.MustCompile(`^[0-9a-zA-Z]{8}$`)

// validateID checks value against the fixed Modrinth ID shape.
func validateID(value string) (string, error) {
	if !idPattern.MatchString(value) {
		return "", &publisher.ConfigurationError{Message: fmt.Sprintf("%s is not a valid Modrinth ID", value)}
	}
	return value, nil
}

// versionNameFixups corrects Minecraft version names whose Mojang spelling
// differs from the name Modrinth indexed historically. Applied only to
// Modrinth; other platforms accept the Mojang spelling.
// https://github.com/modrinth/labrinth/blob/ae1c5342f2017c1c93008d1e87f1a29549dca92f/src/scheduler.rs#L112
var versionNameFixups = map[string]string{
	"1.14.2 Pre-Release 4": "1.14.2-pre4",
	"1.14.2 Pre-Release 3": "1.14.2-pre3",
	"1.14.2 Pre-Release 2": "1.14.2-pre2",
	"1.14.2 Pre-Release 1": "1.14.2-pre1",
	"1.14.1 Pre-Release 2": "1.14.1-pre2",
	"1.14.1 Pre-Release 1": "1.14.1-pre1",
	"1.14 Pre-Release 5":   "1.14-pre5",
	"1.14 Pre-Release 4":   "1.14-pre4",
	"1.14 Pre-Release 3":   "1.14-pre3",
	"1.14 Pre-Release 2":   "1.14-pre2",
	"1.14 Pre-Release 1":   "1.14-pre1",
	"3D Shareware v1.34":   "3D-Shareware-v1.34",
}

// VersionRange selects Minecraft versions by a range resolved against the
// Mojang catalog at publish time.
type VersionRange struct {
	Start            string `yaml:"start"`
	End              string `yaml:"end"`
	IncludeSnapshots bool   `yaml:"includeSnapshots,omitempty"`
}

// Options is the Modrinth-specific target configuration.
type Options struct {
	ProjectID string `yaml:"projectId"`

	MinecraftVersions     []string      `yaml:"minecraftVersions,omitempty"`
	MinecraftVersionRange *VersionRange `yaml:"minecraftVersionRange,omitempty"`

	Featured bool `yaml:"featured,omitempty"`

	// ProjectDescription, when set, replaces the project's long-form
	// description after the version is created.
	ProjectDescription string `yaml:"projectDescription,omitempty"`

	Dependencies []publisher.Dependency `yaml:"dependencies,omitempty"`

	APIEndpoint string `yaml:"apiEndpoint,omitempty"`
}

// Publisher creates a version on a Modrinth project.
type Publisher struct {
	name   string
	shared publisher.Options
	opts   Options

	mcAPI *minecraft.API
}

// New constructs the Modrinth driver for one target.
func New(name string, shared publisher.Options, decode publisher.DecodeFunc) (publisher.Publisher, error) {
	opts := Options{APIEndpoint: DefaultBaseURL}
	if err := decode(&opts); err != nil {
		return nil, fmt.Errorf("invalid modrinth options for target %q: %w", name, err)
	}

	return &Publisher{
		name:   name,
		shared: shared,
		opts:   opts,
		mcAPI:  minecraft.NewAPI(),
	}, nil
}

func (p *Publisher) Name() string                { return p.name }
func (p *Publisher) Kind() publisher.Kind        { return publisher.KindModrinth }
func (p *Publisher) Options() *publisher.Options { return &p.shared }

// Validate checks the target configuration without any network call.
func (p *Publisher) Validate(dryRun bool) error {
	if err := p.shared.Validate(dryRun); err != nil {
		return err
	}
	if _, err := validateID(p.opts.ProjectID); err != nil {
		return err
	}
	if p.shared.File == "" {
		return &publisher.ConfigurationError{Message: `"file" not set`}
	}
	if err := publisher.ValidateUnique("minecraftVersions", p.opts.MinecraftVersions); err != nil {
		return err
	}
	for _, dep := range p.opts.Dependencies {
		if dep.ID == "" && dep.Slug == "" {
			return &publisher.ConfigurationError{Message: "Modrinth dependency has no configured id or slug value"}
		}
		if dep.ID != "" && dep.Slug != "" {
			return &publisher.ConfigurationError{Message: "Modrinth dependency cannot specify both id and slug"}
		}
	}
	return nil
}

// Files returns the primary file followed by the additional files.
func (p *Publisher) Files() []string {
	files := []string{p.shared.File}
	for _, f := range p.shared.AdditionalFiles {
		files = append(files, f.Path)
	}
	return files
}

// Publish resolves dependencies, then creates the version with every file in
// a single multipart request.
func (p *Publisher) Publish(ctx context.Context) (publisher.Result, error) {
	mr := NewAPI(p.shared.AccessToken, WithBaseURL(p.opts.APIEndpoint))

	gameVersions, err := p.resolveMinecraftVersions(ctx)
	if err != nil {
		return nil, err
	}

	dependencies := make([]Dependency, 0, len(p.opts.Dependencies))
	for _, dep := range p.opts.Dependencies {
		resolved, err := p.resolveDependency(ctx, mr, dep)
		if err != nil {
			return nil, err
		}
		dependencies = append(dependencies, resolved)
	}

	const primaryFileKey = "primaryFile"
	files := []FilePart{{Name: primaryFileKey, Path: p.shared.File}}
	for i, additional := range p.shared.AdditionalFiles {
		files = append(files, FilePart{Name: fmt.Sprintf("file_%d", i), Path: additional.Path})
	}

	fileParts := make([]string, 0, len(files))
	for _, file := range files {
		fileParts = append(fileParts, file.Name)
	}

	loaders := make([]string, 0, len(p.shared.ModLoaders))
	for _, loader := range p.shared.ModLoaders {
		loaders = append(loaders, strings.ToLower(loader))
	}

	metadata := CreateVersion{
		Name:          p.shared.DisplayName,
		VersionNumber: p.shared.Version,
		Changelog:     p.shared.Changelog,
		Dependencies:  dependencies,
		GameVersions:  gameVersions,
		VersionType:   versionTypeName(p.shared.Type),
		Loaders:       loaders,
		Featured:      p.opts.Featured,
		ProjectID:     p.opts.ProjectID,
		FileParts:     fileParts,
		PrimaryFile:   primaryFileKey,
	}

	response, err := api.Retry(p.shared.MaxRetries, "failed to create version", func() (*CreateVersionResponse, error) {
		return mr.CreateVersion(ctx, metadata, files)
	})
	if err != nil {
		return nil, err
	}

	if p.opts.ProjectDescription != "" {
		if _, err := api.Retry(p.shared.MaxRetries, "failed to update project description", func() (struct{}, error) {
			return struct{}{}, mr.ModifyProject(ctx, p.opts.ProjectID, ModifyProject{Body: p.opts.ProjectDescription})
		}); err != nil {
			return nil, err
		}
	}

	return &publisher.ModrinthResult{
		VersionID:    response.ID,
		ProjectID:    response.ProjectID,
		DisplayTitle: p.shared.TitleOr("Download from Modrinth"),
	}, nil
}

// resolveMinecraftVersions combines the literal version list with the
// deferred version range, applying Modrinth's historical name fixups to the
// ranged part.
func (p *Publisher) resolveMinecraftVersions(ctx context.Context) ([]string, error) {
	versions := append([]string(nil), p.opts.MinecraftVersions...)

	if r := p.opts.MinecraftVersionRange; r != nil {
		ranged, err := p.mcAPI.VersionsInRange(ctx, r.Start, r.End, r.IncludeSnapshots)
		if err != nil {
			return nil, err
		}
		for _, v := range ranged {
			if fixed, ok := versionNameFixups[v]; ok {
				v = fixed
			}
			versions = append(versions, v)
		}
	}

	return versions, nil
}

// resolveDependency turns a configured dependency into the platform relation,
// resolving slugs to project IDs and version constraints to version IDs.
func (p *Publisher) resolveDependency(ctx context.Context, mr *API, dep publisher.Dependency) (Dependency, error) {
	var projectID string

	if dep.ID != "" {
		id, err := validateID(dep.ID)
		if err != nil {
			return Dependency{}, err
		}
		projectID = id
	}

	if dep.Slug != "" {
		if projectID != "" {
			return Dependency{}, &publisher.ConfigurationError{Message: "Modrinth dependency cannot specify both id and slug"}
		}

		slug := dep.Slug
		check, err := api.Retry(p.shared.MaxRetries, fmt.Sprintf("failed to lookup project id from slug: %s", slug), func() (*ProjectCheckResponse, error) {
			return mr.CheckProject(ctx, slug)
		})
		if err != nil {
			return Dependency{}, err
		}
		projectID = check.ID
	}

	if projectID == "" {
		return Dependency{}, &publisher.ConfigurationError{Message: "Modrinth dependency has no configured id or slug value"}
	}

	var versionID string
	if dep.Version != "" {
		listed, err := api.Retry(p.shared.MaxRetries, fmt.Sprintf("failed to list versions of project: %s", projectID), func() ([]Version, error) {
			return mr.ListVersions(ctx, projectID)
		})
		if err != nil {
			return Dependency{}, err
		}

		var matches []Version
		for _, v := range listed {
			if v.ID == dep.Version || v.VersionNumber == dep.Version {
				matches = append(matches, v)
			}
		}

		switch len(matches) {
		case 0:
			return Dependency{}, &publisher.ResolutionError{Message: fmt.Sprintf("no version of dependency %s matches: %s", projectID, dep.Version)}
		case 1:
			versionID = matches[0].ID
		default:
			return Dependency{}, &publisher.ResolutionError{Message: fmt.Sprintf("multiple versions of dependency %s match: %s", projectID, dep.Version)}
		}
	}

	return Dependency{
		ProjectID:      projectID,
		VersionID:      versionID,
		DependencyType: dependencyTypeName(dep.Kind),
	}, nil
}

// DryRunResult synthesizes a result with a random version ID so announcement
// URLs stay distinct across repeated dry runs.
func (p *Publisher) DryRunResult() publisher.Result {
	return &publisher.ModrinthResult{
		VersionID:    uuid.NewString()[:8],
		ProjectID:    "dry-run",
		DisplayTitle: p.shared.TitleOr("Download from Modrinth"),
	}
}

// DryRunInfo logs the dependencies a real publish would declare.
func (p *Publisher) DryRunInfo(log *logrus.Entry) {
	for _, dep := range p.opts.Dependencies {
		idOrSlug := dep.ID
		if idOrSlug == "" {
			idOrSlug = dep.Slug
		}
		log.WithFields(logrus.Fields{
			"project": idOrSlug,
			"version": dep.Version,
			"kind":    dep.Kind,
		}).Info("dependency")
	}
}
