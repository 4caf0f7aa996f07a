// Package github publishes release assets to GitHub releases.
package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/publisher"
)

func init() {
	if err := publisher.Register(publisher.KindGithub, New); err != nil {
		panic(err)
	}
}

// Options is the GitHub-specific target configuration.
type Options struct {
	// Repository is "owner/repo".
	Repository string `yaml:"repository"`

	// Commitish determines where the release tag is created from. Any branch
	// or commit SHA.
	Commitish string `yaml:"commitish,omitempty"`

	// TagName defaults to the publish version.
	TagName string `yaml:"tagName,omitempty"`

	Draft bool `yaml:"draft,omitempty"`

	// AllowEmptyFiles permits creating a release with no assets at all.
	AllowEmptyFiles bool `yaml:"allowEmptyFiles,omitempty"`

	// ParentTarget names another GitHub target in the same run whose release
	// this target attaches its assets to instead of creating one. The parent
	// target's persisted result must exist before this target runs.
	ParentTarget string `yaml:"parentTarget,omitempty"`

	APIEndpoint string `yaml:"apiEndpoint,omitempty"`
}

// Publisher creates a GitHub release (or reuses one) and uploads assets.
type Publisher struct {
	name   string
	shared publisher.Options
	opts   Options
}

// New constructs the GitHub driver for one target.
func New(name string, shared publisher.Options, decode publisher.DecodeFunc) (publisher.Publisher, error) {
	var opts Options
	if err := decode(&opts); err != nil {
		return nil, fmt.Errorf("invalid github options for target %q: %w", name, err)
	}

	return &Publisher{name: name, shared: shared, opts: opts}, nil
}

func (p *Publisher) Name() string                { return p.name }
func (p *Publisher) Kind() publisher.Kind        { return publisher.KindGithub }
func (p *Publisher) Options() *publisher.Options { return &p.shared }

// DependsOn returns the parent target whose release this target reuses, or
// empty when the target creates its own release.
func (p *Publisher) DependsOn() string { return p.opts.ParentTarget }

// Validate checks the target configuration without any network call.
func (p *Publisher) Validate(dryRun bool) error {
	if err := p.shared.Validate(dryRun); err != nil {
		return err
	}
	if p.opts.Repository == "" {
		return &publisher.ConfigurationError{Message: `"repository" not set`}
	}
	if _, _, err := p.splitRepository(); err != nil {
		return err
	}
	if len(p.Files()) == 0 && !p.opts.AllowEmptyFiles {
		return &publisher.ConfigurationError{Message: "no files to upload; set allowEmptyFiles to create a release without assets"}
	}
	return nil
}

// Files returns every file the target would upload. The primary file is
// optional for GitHub, so the result may be empty.
func (p *Publisher) Files() []string {
	var files []string
	if p.shared.File != "" {
		files = append(files, p.shared.File)
	}
	for _, f := range p.shared.AdditionalFiles {
		files = append(files, f.Path)
	}
	return files
}

// Publish creates or fetches the release, then uploads each asset in order.
func (p *Publisher) Publish(ctx context.Context) (publisher.Result, error) {
	files := p.Files()
	if len(files) == 0 && !p.opts.AllowEmptyFiles {
		return nil, &publisher.ConfigurationError{Message: "no files to upload; set allowEmptyFiles to create a release without assets"}
	}

	owner, repo, err := p.splitRepository()
	if err != nil {
		return nil, err
	}

	client, err := p.connect(ctx)
	if err != nil {
		return nil, err
	}

	var release *github.RepositoryRelease
	if p.opts.ParentTarget != "" {
		release, err = p.fetchParentRelease(ctx, client, owner, repo)
	} else {
		release, err = p.createRelease(ctx, client, owner, repo)
	}
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		if err := p.uploadAsset(ctx, client, owner, repo, release.GetID(), file); err != nil {
			return nil, err
		}
	}

	return &publisher.GithubResult{
		Repository:   p.opts.Repository,
		ReleaseID:    release.GetID(),
		URL:          release.GetHTMLURL(),
		DisplayTitle: p.shared.TitleOr("Download from GitHub"),
	}, nil
}

// connect builds an authenticated go-github client, pointing it at a custom
// endpoint when one is configured.
func (p *Publisher) connect(ctx context.Context) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.shared.AccessToken})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = api.DefaultTimeout
	client := github.NewClient(httpClient)

	if p.opts.APIEndpoint != "" {
		endpoint := p.opts.APIEndpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid apiEndpoint: %w", err)
		}
		client.BaseURL = parsed
		client.UploadURL = parsed
	}

	return client, nil
}

// createRelease creates a new release tagged with the configured tag name,
// defaulting to the publish version. Anything but a stable release is marked
// prerelease.
func (p *Publisher) createRelease(ctx context.Context, client *github.Client, owner, repo string) (*github.RepositoryRelease, error) {
	tag := p.opts.TagName
	if tag == "" {
		tag = p.shared.Version
	}

	release := &github.RepositoryRelease{
		TagName:    github.Ptr(tag),
		Name:       github.Ptr(p.shared.DisplayName),
		Body:       github.Ptr(p.shared.Changelog),
		Prerelease: github.Ptr(p.shared.Type != publisher.ReleaseTypeStable),
		Draft:      github.Ptr(p.opts.Draft),
	}
	if p.opts.Commitish != "" {
		release.TargetCommitish = github.Ptr(p.opts.Commitish)
	}

	return api.Retry(p.shared.MaxRetries, "failed to create release", func() (*github.RepositoryRelease, error) {
		created, _, err := client.Repositories.CreateRelease(ctx, owner, repo, release)
		return created, wrapError(err)
	})
}

// fetchParentRelease reads the parent target's persisted result and fetches
// its release by ID instead of creating a new one.
func (p *Publisher) fetchParentRelease(ctx context.Context, client *github.Client, owner, repo string) (*github.RepositoryRelease, error) {
	if p.shared.ResultsDir == "" {
		return nil, &publisher.ConfigurationError{Message: "parentTarget requires a results directory"}
	}

	resultPath := filepath.Join(p.shared.ResultsDir, p.opts.ParentTarget+".json")
	result, err := publisher.ReadResult(resultPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read result of parent target %q: %w", p.opts.ParentTarget, err)
	}

	parent, ok := result.(*publisher.GithubResult)
	if !ok {
		return nil, &publisher.ConfigurationError{
			Message: fmt.Sprintf("parent target %q is a %s target, expected github", p.opts.ParentTarget, result.Kind()),
		}
	}

	return api.Retry(p.shared.MaxRetries, "failed to fetch release", func() (*github.RepositoryRelease, error) {
		release, _, err := client.Repositories.GetRelease(ctx, owner, repo, parent.ReleaseID)
		return release, wrapError(err)
	})
}

// uploadAsset uploads one file as a release asset.
func (p *Publisher) uploadAsset(ctx context.Context, client *github.Client, owner, repo string, releaseID int64, path string) error {
	_, err := api.Retry(p.shared.MaxRetries, "failed to upload release asset", func() (*github.ReleaseAsset, error) {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		opts := &github.UploadOptions{
			Name:      filepath.Base(path),
			MediaType: "application/java-archive",
		}
		asset, _, err := client.Repositories.UploadReleaseAsset(ctx, owner, repo, releaseID, opts, file)
		return asset, wrapError(err)
	})
	return err
}

func (p *Publisher) splitRepository() (string, string, error) {
	parts := strings.Split(p.opts.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &publisher.ConfigurationError{
			Message: fmt.Sprintf(`"repository" must be "owner/repo", got %q`, p.opts.Repository),
		}
	}
	return parts[0], parts[1], nil
}

// wrapError converts go-github error responses into the shared request error
// so retry classification sees the status code.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &api.RequestError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
	}

	return err
}

// DryRunResult synthesizes a result with a randomized release URL so
// announcement URLs stay distinct across repeated dry runs.
func (p *Publisher) DryRunResult() publisher.Result {
	tag := fmt.Sprintf("dry-run-%s", uuid.NewString()[:8])
	return &publisher.GithubResult{
		Repository:   p.opts.Repository,
		ReleaseID:    rand.Int63n(1000000),
		URL:          fmt.Sprintf("https://github.com/%s/releases/tag/%s", p.opts.Repository, tag),
		DisplayTitle: p.shared.TitleOr("Download from GitHub"),
	}
}

// DryRunInfo logs the release a real publish would create.
func (p *Publisher) DryRunInfo(log *logrus.Entry) {
	tag := p.opts.TagName
	if tag == "" {
		tag = p.shared.Version
	}
	log.WithFields(logrus.Fields{
		"repository": p.opts.Repository,
		"tag":        tag,
		"draft":      p.opts.Draft,
	}).Info("release")
}
