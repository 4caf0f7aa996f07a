package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/pkg/api"
	"github.com/modpub/modpub/pkg/publisher"
)

// releaseServer fakes the release slice of the GitHub REST API.
type releaseServer struct {
	*httptest.Server

	mu         sync.Mutex
	created    []gogithub.RepositoryRelease
	assetNames []string
	fetched    []int64
}

func newReleaseServer(t *testing.T) *releaseServer {
	t.Helper()

	s := &releaseServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/repos/owner/example-mod/releases":
			var release gogithub.RepositoryRelease
			require.NoError(t, json.NewDecoder(r.Body).Decode(&release))

			s.mu.Lock()
			s.created = append(s.created, release)
			s.mu.Unlock()

			fmt.Fprintf(w, `{"id":42,"html_url":"https://github.com/owner/example-mod/releases/tag/%s"}`, release.GetTagName())
		case r.Method == http.MethodGet && r.URL.Path == "/repos/owner/example-mod/releases/42":
			s.mu.Lock()
			s.fetched = append(s.fetched, 42)
			s.mu.Unlock()

			fmt.Fprint(w, `{"id":42,"html_url":"https://github.com/owner/example-mod/releases/tag/v1.0.0"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/repos/owner/example-mod/releases/42/assets":
			s.mu.Lock()
			s.assetNames = append(s.assetNames, r.URL.Query().Get("name"))
			s.mu.Unlock()

			assert.Equal(t, "application/java-archive", r.Header.Get("Content-Type"))
			fmt.Fprint(w, `{"id":7}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func writeJar(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("jar"), 0644))
	return path
}

func newTestPublisher(t *testing.T, shared publisher.Options, opts Options) *Publisher {
	t.Helper()

	pub, err := New("github", shared, func(out interface{}) error {
		*out.(*Options) = opts
		return nil
	})
	require.NoError(t, err)
	return pub.(*Publisher)
}

func TestPublishCreatesRelease(t *testing.T) {
	server := newReleaseServer(t)
	dir := t.TempDir()

	shared := publisher.Options{
		File: writeJar(t, dir, "mod-1.0.0.jar"),
		AdditionalFiles: []publisher.AdditionalFile{
			{Path: writeJar(t, dir, "mod-1.0.0-sources.jar")},
		},
		Version:     "1.0.0",
		DisplayName: "Example 1.0.0",
		Changelog:   "# Changes",
		Type:        publisher.ReleaseTypeBeta,
		MaxRetries:  3,
		AccessToken: "secret",
	}

	p := newTestPublisher(t, shared, Options{
		Repository:  "owner/example-mod",
		TagName:     "v1.0.0",
		Commitish:   "main",
		APIEndpoint: server.URL,
	})

	result, err := p.Publish(context.Background())
	require.NoError(t, err)

	ghResult, ok := result.(*publisher.GithubResult)
	require.True(t, ok)
	assert.Equal(t, "owner/example-mod", ghResult.Repository)
	assert.Equal(t, int64(42), ghResult.ReleaseID)
	assert.Equal(t, "https://github.com/owner/example-mod/releases/tag/v1.0.0", ghResult.URL)

	require.Len(t, server.created, 1)
	release := server.created[0]
	assert.Equal(t, "v1.0.0", release.GetTagName())
	assert.Equal(t, "Example 1.0.0", release.GetName())
	assert.Equal(t, "# Changes", release.GetBody())
	assert.Equal(t, "main", release.GetTargetCommitish())
	assert.True(t, release.GetPrerelease())
	assert.False(t, release.GetDraft())

	assert.Equal(t, []string{"mod-1.0.0.jar", "mod-1.0.0-sources.jar"}, server.assetNames)
}

func TestConnectSetsRequestTimeout(t *testing.T) {
	shared := publisher.Options{AccessToken: "token", Version: "1.0.0"}
	p := newTestPublisher(t, shared, Options{Repository: "owner/repo"})

	client, err := p.connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, api.DefaultTimeout, client.Client().Timeout)
}

func TestPublishStableIsNotPrerelease(t *testing.T) {
	server := newReleaseServer(t)
	dir := t.TempDir()

	shared := publisher.Options{
		File:        writeJar(t, dir, "mod.jar"),
		Version:     "1.0.0",
		Type:        publisher.ReleaseTypeStable,
		MaxRetries:  3,
		AccessToken: "secret",
	}

	p := newTestPublisher(t, shared, Options{
		Repository:  "owner/example-mod",
		APIEndpoint: server.URL,
	})

	_, err := p.Publish(context.Background())
	require.NoError(t, err)

	require.Len(t, server.created, 1)
	assert.False(t, server.created[0].GetPrerelease())
	// Tag falls back to the version when unset.
	assert.Equal(t, "1.0.0", server.created[0].GetTagName())
}

func TestPublishReusesParentRelease(t *testing.T) {
	server := newReleaseServer(t)
	dir := t.TempDir()
	resultsDir := filepath.Join(dir, "results")

	parent := &publisher.GithubResult{
		Repository: "owner/example-mod",
		ReleaseID:  42,
		URL:        "https://github.com/owner/example-mod/releases/tag/v1.0.0",
	}
	require.NoError(t, publisher.WriteResult(filepath.Join(resultsDir, "github.json"), parent))

	shared := publisher.Options{
		File:        writeJar(t, dir, "extra.jar"),
		Version:     "1.0.0",
		Type:        publisher.ReleaseTypeStable,
		MaxRetries:  3,
		AccessToken: "secret",
		ResultsDir:  resultsDir,
	}

	p := newTestPublisher(t, shared, Options{
		Repository:   "owner/example-mod",
		ParentTarget: "github",
		APIEndpoint:  server.URL,
	})

	result, err := p.Publish(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{42}, server.fetched)
	assert.Empty(t, server.created)
	assert.Equal(t, []string{"extra.jar"}, server.assetNames)
	assert.Equal(t, int64(42), result.(*publisher.GithubResult).ReleaseID)
}

func TestPublishParentResultMissing(t *testing.T) {
	dir := t.TempDir()

	shared := publisher.Options{
		File:        writeJar(t, dir, "extra.jar"),
		Version:     "1.0.0",
		MaxRetries:  3,
		AccessToken: "secret",
		ResultsDir:  filepath.Join(dir, "results"),
	}

	p := newTestPublisher(t, shared, Options{
		Repository:   "owner/example-mod",
		ParentTarget: "github",
	})

	_, err := p.Publish(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to read result of parent target "github"`)
}

func TestPublishParentResultWrongKind(t *testing.T) {
	dir := t.TempDir()
	resultsDir := filepath.Join(dir, "results")

	wrongKind := &publisher.ModrinthResult{VersionID: "IIJJKKLL", ProjectID: "AABBCCDD"}
	require.NoError(t, publisher.WriteResult(filepath.Join(resultsDir, "modrinth.json"), wrongKind))

	shared := publisher.Options{
		File:        writeJar(t, dir, "extra.jar"),
		Version:     "1.0.0",
		MaxRetries:  3,
		AccessToken: "secret",
		ResultsDir:  resultsDir,
	}

	p := newTestPublisher(t, shared, Options{
		Repository:   "owner/example-mod",
		ParentTarget: "modrinth",
	})

	_, err := p.Publish(context.Background())
	var cfgErr *publisher.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "expected github")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	jar := writeJar(t, dir, "mod.jar")

	t.Run("valid", func(t *testing.T) {
		p := newTestPublisher(t, publisher.Options{File: jar, Version: "1.0.0", AccessToken: "secret"}, Options{Repository: "owner/repo"})
		require.NoError(t, p.Validate(false))
	})

	t.Run("repository required", func(t *testing.T) {
		p := newTestPublisher(t, publisher.Options{File: jar, Version: "1.0.0", AccessToken: "secret"}, Options{})
		err := p.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"repository" not set`)
	})

	t.Run("repository shape enforced", func(t *testing.T) {
		for _, bad := range []string{"owner", "owner/", "/repo", "owner/repo/extra"} {
			p := newTestPublisher(t, publisher.Options{File: jar, Version: "1.0.0", AccessToken: "secret"}, Options{Repository: bad})
			err := p.Validate(false)
			require.Error(t, err, bad)
			assert.Contains(t, err.Error(), `must be "owner/repo"`)
		}
	})

	t.Run("no files rejected without allowEmptyFiles", func(t *testing.T) {
		p := newTestPublisher(t, publisher.Options{Version: "1.0.0", AccessToken: "secret"}, Options{Repository: "owner/repo"})
		err := p.Validate(false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no files to upload")

		p = newTestPublisher(t, publisher.Options{Version: "1.0.0", AccessToken: "secret"}, Options{Repository: "owner/repo", AllowEmptyFiles: true})
		require.NoError(t, p.Validate(false))
	})
}

func TestPublishNoFilesFailsBeforeNetwork(t *testing.T) {
	// No server at all: the empty-file check must fire before any request.
	p := newTestPublisher(t, publisher.Options{Version: "1.0.0", MaxRetries: 3, AccessToken: "secret"}, Options{Repository: "owner/repo"})

	_, err := p.Publish(context.Background())
	var cfgErr *publisher.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "no files to upload")
}

func TestDryRunResult(t *testing.T) {
	p := newTestPublisher(t, publisher.Options{Version: "1.0.0"}, Options{Repository: "owner/example-mod"})

	first := p.DryRunResult().(*publisher.GithubResult)
	second := p.DryRunResult().(*publisher.GithubResult)

	assert.Equal(t, "owner/example-mod", first.Repository)
	assert.Contains(t, first.URL, "https://github.com/owner/example-mod/releases/tag/dry-run-")
	// Randomized so repeated dry runs produce distinct links.
	assert.NotEqual(t, first.URL, second.URL)
}

func TestDependsOn(t *testing.T) {
	p := newTestPublisher(t, publisher.Options{Version: "1.0.0"}, Options{Repository: "owner/repo", ParentTarget: "github"})
	assert.Equal(t, "github", p.DependsOn())

	p = newTestPublisher(t, publisher.Options{Version: "1.0.0"}, Options{Repository: "owner/repo"})
	assert.Empty(t, p.DependsOn())
}
