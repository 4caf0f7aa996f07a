// Package minecraft resolves Minecraft version names against Mojang's
// launcher version manifest.
package minecraft

import (
	"context"
	"fmt"

	"github.com/modpub/modpub/pkg/api"
)

const (
	// DefaultBaseURL is the Mojang launcher metadata endpoint
	DefaultBaseURL = "https://piston-meta.mojang.com"

	// LatestVersion is the sentinel accepted as the end of a version range,
	// meaning the newest entry in the filtered catalog.
	LatestVersion = "latest"
)

// Version is a single entry in the launcher version manifest.
type Version struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Time        string `json:"time"`
	ReleaseTime string `json:"releaseTime"`
}

type manifest struct {
	Versions []Version `json:"versions"`
}

// RangeError reports an invalid version range request.
type RangeError struct {
	Start   string
	End     string
	Message string
}

func (e *RangeError) Error() string {
	return e.Message
}

// APIOption configures an API
type APIOption func(*API)

// WithBaseURL sets a custom base URL for the version manifest
func WithBaseURL(baseURL string) APIOption {
	return func(a *API) {
		a.baseURL = baseURL
	}
}

// WithClient sets a custom HTTP client
func WithClient(client *api.Client) APIOption {
	return func(a *API) {
		a.client = client
	}
}

// API queries the Mojang version catalog.
type API struct {
	baseURL string
	client  *api.Client
}

// NewAPI creates a version catalog client.
func NewAPI(opts ...APIOption) *API {
	a := &API{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	if a.client == nil {
		a.client = api.NewClient()
	}
	return a
}

// Versions fetches the full ordered version catalog, newest first.
func (a *API) Versions(ctx context.Context) ([]Version, error) {
	var m manifest
	if err := a.client.Get(ctx, a.baseURL+"/mc/game/version_manifest_v2.json", nil, &m); err != nil {
		return nil, fmt.Errorf("failed to fetch version manifest: %w", err)
	}
	return m.Versions, nil
}

// VersionsInRange resolves startID..endID to the contiguous slice of version
// names between them, oldest first. Snapshot entries are skipped unless
// includeSnapshots is set. endID may be LatestVersion to mean the newest
// entry.
//
// A range where start and end name the same version is rejected, matching the
// catalog's historical behavior.
func (a *API) VersionsInRange(ctx context.Context, startID, endID string, includeSnapshots bool) ([]string, error) {
	all, err := a.Versions(ctx)
	if err != nil {
		return nil, err
	}

	var versions []string
	for _, v := range all {
		if v.Type == "release" || includeSnapshots {
			versions = append(versions, v.ID)
		}
	}

	// The manifest is newest-first; ranges are expressed oldest-first.
	for i, j := 0, len(versions)-1; i < j; i, j = i+1, j-1 {
		versions[i], versions[j] = versions[j], versions[i]
	}

	startIndex := indexOf(versions, startID)
	endIndex := len(versions) - 1
	if endID != LatestVersion {
		endIndex = indexOf(versions, endID)
	}

	if startIndex == -1 {
		return nil, &RangeError{Start: startID, End: endID, Message: fmt.Sprintf("invalid start version %s", startID)}
	}
	if endIndex == -1 {
		return nil, &RangeError{Start: startID, End: endID, Message: fmt.Sprintf("invalid end version %s", endID)}
	}
	if startIndex > endIndex {
		return nil, &RangeError{Start: startID, End: endID, Message: fmt.Sprintf("start version %s must be before end version %s", startID, endID)}
	}
	if startIndex == endIndex {
		return nil, &RangeError{Start: startID, End: endID, Message: fmt.Sprintf("start version %s cannot be the same as end version %s", startID, endID)}
	}

	return versions[startIndex : endIndex+1], nil
}

func indexOf(versions []string, id string) int {
	for i, v := range versions {
		if v == id {
			return i
		}
	}
	return -1
}
