package curseforge

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/minecraft"
	"github.com/modpub/modpub/pkg/publisher"
)

func init() {
	if err := publisher.Register(publisher.KindCurseforge, New); err != nil {
		panic(err)
	}
}

// VersionRange selects Minecraft versions by a range resolved against the
// Mojang catalog at publish time. Start is inclusive, End exclusive; End may
// be "latest".
type VersionRange struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Options is the CurseForge-specific target configuration.
type Options struct {
	ProjectID string `yaml:"projectId"`

	// ProjectSlug is only needed to build the announcement link; the upload
	// API itself never uses it.
	ProjectSlug string `yaml:"projectSlug,omitempty"`

	MinecraftVersions     []string      `yaml:"minecraftVersions,omitempty"`
	MinecraftVersionRange *VersionRange `yaml:"minecraftVersionRange,omitempty"`

	ClientRequired *bool `yaml:"clientRequired,omitempty"`
	ServerRequired *bool `yaml:"serverRequired,omitempty"`

	JavaVersions []int `yaml:"javaVersions,omitempty"`

	Dependencies []publisher.Dependency `yaml:"dependencies,omitempty"`

	APIEndpoint string `yaml:"apiEndpoint,omitempty"`

	// ChangelogType defaults to markdown.
	ChangelogType string `yaml:"changelogType,omitempty"`
}

// Publisher uploads a file and its additional files to a CurseForge project.
type Publisher struct {
	name   string
	shared publisher.Options
	opts   Options

	// mcAPI resolves deferred version ranges; swapped out in tests.
	mcAPI *minecraft.API
}

// New constructs the CurseForge driver for one target.
func New(name string, shared publisher.Options, decode publisher.DecodeFunc) (publisher.Publisher, error) {
	opts := Options{
		APIEndpoint:   DefaultBaseURL,
		ChangelogType: "markdown",
	}
	if err := decode(&opts); err != nil {
		return nil, fmt.Errorf("invalid curseforge options for target %q: %w", name, err)
	}

	return &Publisher{
		name:   name,
		shared: shared,
		opts:   opts,
		mcAPI:  minecraft.NewAPI(),
	}, nil
}

func (p *Publisher) Name() string                { return p.name }
func (p *Publisher) Kind() publisher.Kind        { return publisher.KindCurseforge }
func (p *Publisher) Options() *publisher.Options { return &p.shared }

// Validate checks the target configuration without any network call.
func (p *Publisher) Validate(dryRun bool) error {
	if err := p.shared.Validate(dryRun); err != nil {
		return err
	}
	if p.opts.ProjectID == "" {
		return &publisher.ConfigurationError{Message: `"projectId" not set`}
	}
	if p.shared.File == "" {
		return &publisher.ConfigurationError{Message: `"file" not set`}
	}
	if err := publisher.ValidateUnique("minecraftVersions", p.opts.MinecraftVersions); err != nil {
		return err
	}
	for _, dep := range p.opts.Dependencies {
		if dep.Slug == "" {
			return &publisher.ConfigurationError{Message: "CurseForge dependencies must be given by slug"}
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

// Publish resolves every configured version name to its numeric ID, uploads
// the primary file and then each additional file as children of it.
func (p *Publisher) Publish(ctx context.Context) (publisher.Result, error) {
	cf := NewAPI(p.shared.AccessToken, WithBaseURL(p.opts.APIEndpoint))

	minecraftVersions, err := p.resolveMinecraftVersions(ctx)
	if err != nil {
		return nil, err
	}

	types, err := api.Retry(p.shared.MaxRetries, "failed to get game version types", func() ([]GameVersionType, error) {
		return cf.GetVersionTypes(ctx)
	})
	if err != nil {
		return nil, err
	}

	catalog, err := api.Retry(p.shared.MaxRetries, "failed to get game versions", func() ([]GameVersion, error) {
		return cf.GetGameVersions(ctx)
	})
	if err != nil {
		return nil, err
	}

	resolver := NewVersionResolver(types, catalog)

	gameVersions, err := p.resolveGameVersions(resolver, minecraftVersions)
	if err != nil {
		return nil, err
	}

	relations, err := p.buildRelations()
	if err != nil {
		return nil, err
	}

	metadata := UploadMetadata{
		Changelog:     p.shared.Changelog,
		ChangelogType: p.opts.ChangelogType,
		DisplayName:   p.shared.DisplayName,
		GameVersions:  gameVersions,
		ReleaseType:   releaseTypeName(p.shared.Type),
		Relations:     relations,
	}

	response, err := api.Retry(p.shared.MaxRetries, "failed to upload file", func() (*UploadResponse, error) {
		return cf.UploadFile(ctx, p.opts.ProjectID, p.shared.File, metadata)
	})
	if err != nil {
		return nil, err
	}

	for _, additional := range p.shared.AdditionalFiles {
		// Child uploads share the metadata but must omit gameVersions and
		// displayName.
		childMetadata := metadata
		childMetadata.ParentFileID = &response.ID
		childMetadata.GameVersions = nil
		childMetadata.DisplayName = ""

		path := additional.Path
		if _, err := api.Retry(p.shared.MaxRetries, "failed to upload additional file", func() (*UploadResponse, error) {
			return cf.UploadFile(ctx, p.opts.ProjectID, path, childMetadata)
		}); err != nil {
			return nil, err
		}
	}

	return &publisher.CurseforgeResult{
		ProjectID:    p.opts.ProjectID,
		ProjectSlug:  p.opts.ProjectSlug,
		FileID:       response.ID,
		DisplayTitle: p.shared.TitleOr("Download from CurseForge"),
	}, nil
}

// resolveMinecraftVersions combines the literal version list with the
// deferred version range, resolved now against the Mojang catalog.
func (p *Publisher) resolveMinecraftVersions(ctx context.Context) ([]string, error) {
	versions := append([]string(nil), p.opts.MinecraftVersions...)

	if r := p.opts.MinecraftVersionRange; r != nil {
		ranged, err := p.mcAPI.VersionsInRange(ctx, r.Start, r.End, false)
		if err != nil {
			return nil, err
		}
		versions = append(versions, ranged...)
	}

	return versions, nil
}

func (p *Publisher) resolveGameVersions(resolver *VersionResolver, minecraftVersions []string) ([]int, error) {
	var gameVersions []int

	for _, name := range minecraftVersions {
		id, err := resolver.MinecraftVersion(name)
		if err != nil {
			return nil, err
		}
		gameVersions = append(gameVersions, id)
	}

	for _, loader := range p.shared.ModLoaders {
		id, err := resolver.ModLoader(loader)
		if err != nil {
			return nil, err
		}
		gameVersions = append(gameVersions, id)
	}

	if p.opts.ClientRequired != nil && *p.opts.ClientRequired {
		id, err := resolver.Client()
		if err != nil {
			return nil, err
		}
		gameVersions = append(gameVersions, id)
	}

	if p.opts.ServerRequired != nil && *p.opts.ServerRequired {
		id, err := resolver.Server()
		if err != nil {
			return nil, err
		}
		gameVersions = append(gameVersions, id)
	}

	for _, javaVersion := range p.opts.JavaVersions {
		id, err := resolver.JavaVersion(javaVersion)
		if err != nil {
			return nil, err
		}
		gameVersions = append(gameVersions, id)
	}

	return gameVersions, nil
}

func (p *Publisher) buildRelations() (*Relations, error) {
	if len(p.opts.Dependencies) == 0 {
		return nil, nil
	}

	projects := make([]ProjectRelation, 0, len(p.opts.Dependencies))
	for _, dep := range p.opts.Dependencies {
		relationType, err := relationTypeName(dep.Kind)
		if err != nil {
			return nil, err
		}
		projects = append(projects, ProjectRelation{Slug: dep.Slug, Type: relationType})
	}

	return &Relations{Projects: projects}, nil
}

// DryRunResult synthesizes a result with a random file ID. The randomization
// keeps announcement URLs distinct across repeated dry runs, which matters
// because the messaging target drops duplicate URLs.
func (p *Publisher) DryRunResult() publisher.Result {
	slug := ""
	if p.opts.ProjectSlug != "" {
		slug = "dry-run"
	}

	return &publisher.CurseforgeResult{
		ProjectID:    p.opts.ProjectID,
		ProjectSlug:  slug,
		FileID:       rand.Intn(1000000),
		DisplayTitle: p.shared.TitleOr("Download from CurseForge"),
	}
}

// DryRunInfo logs the dependencies a real publish would declare.
func (p *Publisher) DryRunInfo(log *logrus.Entry) {
	for _, dep := range p.opts.Dependencies {
		log.WithFields(logrus.Fields{
			"slug": dep.Slug,
			"kind": dep.Kind,
		}).Info("dependency")
	}
}
