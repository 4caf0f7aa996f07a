// Package modrinth creates versions on Modrinth.
//
// API reference: https://docs.modrinth.com/api-spec/#tag/versions/operation/createVersion
package modrinth

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/publisher"
)

// DefaultBaseURL is the Modrinth API endpoint.
const DefaultBaseURL = "https://api.modrinth.com/v2"

// apiTimeout is longer than the default because Modrinth can be slow to
// process uploads.
const apiTimeout = 60 * time.Second

// CreateVersion is the metadata part of a version creation request. It names
// every file part of the multipart body and which of them is primary.
type CreateVersion struct {
	Name          string       `json:"name"`
	VersionNumber string       `json:"version_number"`
	Changelog     string       `json:"changelog,omitempty"`
	Dependencies  []Dependency `json:"dependencies"`
	GameVersions  []string     `json:"game_versions"`
	VersionType   string       `json:"version_type"`
	Loaders       []string     `json:"loaders"`
	Featured      bool         `json:"featured"`
	ProjectID     string       `json:"project_id"`
	FileParts     []string     `json:"file_parts"`
	PrimaryFile   string       `json:"primary_file,omitempty"`
}

// Dependency relates a version to another project or version.
type Dependency struct {
	VersionID      string `json:"version_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	DependencyType string `json:"dependency_type"`
}

// CreateVersionResponse carries the fields of the created version we need.
type CreateVersionResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	AuthorID  string `json:"author_id"`
}

// Version is one entry of a project's version listing.
type Version struct {
	ID            string `json:"id"`
	VersionNumber string `json:"version_number"`
}

// ProjectCheckResponse resolves a slug to a project ID.
type ProjectCheckResponse struct {
	ID string `json:"id"`
}

// ModifyProject updates a project's long-form description body.
// https://docs.modrinth.com/#tag/projects/operation/modifyProject
type ModifyProject struct {
	Body string `json:"body"`
}

// FilePart is one named file of a version creation request.
type FilePart struct {
	Name string
	Path string
}

// versionTypeName maps the shared release type to Modrinth's vocabulary.
func versionTypeName(t publisher.ReleaseType) string {
	switch t {
	case publisher.ReleaseTypeStable:
		return "release"
	case publisher.ReleaseTypeBeta:
		return "beta"
	case publisher.ReleaseTypeAlpha:
		return "alpha"
	}
	return string(t)
}

// dependencyTypeName maps the shared dependency kind to Modrinth's vocabulary.
func dependencyTypeName(kind publisher.DependencyKind) string {
	// Modrinth uses the shared names verbatim.
	return string(kind)
}

// API is the Modrinth API client.
type API struct {
	baseURL string
	headers map[string]string
	client  *api.Client
}

// APIOption configures an API
type APIOption func(*API)

// WithBaseURL sets a custom API endpoint
func WithBaseURL(baseURL string) APIOption {
	return func(a *API) {
		a.baseURL = baseURL
	}
}

// NewAPI creates a Modrinth client authenticated with accessToken.
func NewAPI(accessToken string, opts ...APIOption) *API {
	a := &API{
		baseURL: DefaultBaseURL,
		headers: map[string]string{"Authorization": accessToken},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = api.NewClient(
		api.WithErrorFactory(errorFactory),
		api.WithTimeout(apiTimeout),
	)
	return a
}

// CreateVersion uploads all files in one multipart request. The metadata part
// is named "data" and references every file part by name.
func (a *API) CreateVersion(ctx context.Context, metadata CreateVersion, files []FilePart) (*CreateVersionResponse, error) {
	form := &api.Form{}
	if err := form.AddJSON("data", metadata); err != nil {
		return nil, err
	}
	for _, file := range files {
		form.AddFile(file.Name, filepath.Base(file.Path), file.Path)
	}

	var response CreateVersionResponse
	if err := a.client.PostMultipart(ctx, a.baseURL+"/version", form, a.headers, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// CheckProject resolves a project slug (or ID) to its project ID.
func (a *API) CheckProject(ctx context.Context, slug string) (*ProjectCheckResponse, error) {
	var response ProjectCheckResponse
	if err := a.client.Get(ctx, fmt.Sprintf("%s/project/%s/check", a.baseURL, slug), a.headers, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListVersions lists a project's versions.
func (a *API) ListVersions(ctx context.Context, idOrSlug string) ([]Version, error) {
	var versions []Version
	if err := a.client.Get(ctx, fmt.Sprintf("%s/project/%s/version", a.baseURL, idOrSlug), a.headers, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// ModifyProject updates a project's description.
func (a *API) ModifyProject(ctx context.Context, idOrSlug string, modify ModifyProject) error {
	return a.client.Patch(ctx, fmt.Sprintf("%s/project/%s", a.baseURL, idOrSlug), modify, a.headers, nil)
}

// errorFactory extracts Modrinth's {error, description} error shape.
func errorFactory(statusCode int, body []byte) error {
	message := "Unknown error"

	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Description != "" {
		message = errResp.Description
	}

	return &api.RequestError{StatusCode: statusCode, Message: message, Body: string(body)}
}
