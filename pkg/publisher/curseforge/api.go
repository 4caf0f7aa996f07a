// Package curseforge uploads files to CurseForge.
//
// Upload API reference:
// https://support.curseforge.com/en/support/solutions/articles/9000197321-curseforge-upload-api
package curseforge

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/publisher"
)

// DefaultBaseURL is the CurseForge upload API endpoint.
const DefaultBaseURL = "https://minecraft.curseforge.com"

// GameVersionType partitions the shared game-version catalog. Minecraft
// versions, mod loaders, java versions and the client/server environment all
// draw their numeric IDs from the same catalog, keyed by these types.
type GameVersionType struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// GameVersion is one entry of the game-version catalog.
type GameVersion struct {
	ID                int    `json:"id"`
	GameVersionTypeID int    `json:"gameVersionTypeID"`
	Name              string `json:"name"`
	Slug              string `json:"slug"`
}

// UploadMetadata is the JSON metadata part of an upload-file request.
type UploadMetadata struct {
	Changelog     string `json:"changelog"`
	ChangelogType string `json:"changelogType,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	// ParentFileID marks this upload as a child of an earlier file. The
	// platform requires gameVersions and displayName omitted on child
	// uploads.
	ParentFileID *int  `json:"parentFileID,omitempty"`
	GameVersions []int `json:"gameVersions,omitempty"`
	ReleaseType  string `json:"releaseType"`
	// Relations must be absent, not an empty list, when there are no
	// dependencies.
	Relations *Relations `json:"relations,omitempty"`
}

// Relations carries the project dependency list of an upload.
type Relations struct {
	Projects []ProjectRelation `json:"projects"`
}

// ProjectRelation relates the uploaded file to another project by slug.
type ProjectRelation struct {
	Slug string `json:"slug"`
	Type string `json:"type"`
}

// UploadResponse is the platform's answer to a successful upload.
type UploadResponse struct {
	ID int `json:"id"`
}

// releaseTypeName maps the shared release type to CurseForge's vocabulary.
func releaseTypeName(t publisher.ReleaseType) string {
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

// relationTypeName maps the shared dependency kind to CurseForge's vocabulary.
func relationTypeName(kind publisher.DependencyKind) (string, error) {
	switch kind {
	case publisher.DependencyRequired:
		return "requiredDependency", nil
	case publisher.DependencyOptional:
		return "optionalDependency", nil
	case publisher.DependencyIncompatible:
		return "incompatible", nil
	case publisher.DependencyEmbedded:
		return "embeddedLibrary", nil
	}
	return "", fmt.Errorf("invalid dependency kind: %s", kind)
}

// API is the CurseForge upload API client.
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

// NewAPI creates a CurseForge client authenticated with accessToken.
func NewAPI(accessToken string, opts ...APIOption) *API {
	a := &API{
		baseURL: DefaultBaseURL,
		headers: map[string]string{"X-Api-Token": accessToken},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.client = api.NewClient(api.WithErrorFactory(errorFactory))
	return a
}

// GetVersionTypes fetches the version-type lookup table.
func (a *API) GetVersionTypes(ctx context.Context) ([]GameVersionType, error) {
	var types []GameVersionType
	if err := a.client.Get(ctx, a.baseURL+"/api/game/version-types", a.headers, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// GetGameVersions fetches the shared game-version catalog.
func (a *API) GetGameVersions(ctx context.Context) ([]GameVersion, error) {
	var versions []GameVersion
	if err := a.client.Get(ctx, a.baseURL+"/api/game/versions", a.headers, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// UploadFile uploads one file to a project with its JSON metadata part.
func (a *API) UploadFile(ctx context.Context, projectID, path string, metadata UploadMetadata) (*UploadResponse, error) {
	form := &api.Form{}
	if err := form.AddJSON("metadata", metadata); err != nil {
		return nil, err
	}
	form.AddFile("file", filepath.Base(path), path)

	var response UploadResponse
	url := fmt.Sprintf("%s/api/projects/%s/upload-file", a.baseURL, projectID)
	if err := a.client.PostMultipart(ctx, url, form, a.headers, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// errorFactory extracts CurseForge's {errorCode, errorMessage} error shape.
func errorFactory(statusCode int, body []byte) error {
	message := "Unknown error"

	var errResp struct {
		ErrorCode    int    `json:"errorCode"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.ErrorMessage != "" {
		message = errResp.ErrorMessage
	}

	return &api.RequestError{StatusCode: statusCode, Message: message, Body: string(body)}
}
