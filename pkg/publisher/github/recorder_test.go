package github

import (
	"context"
	"errors"
	"os"
	"testing"

	gogithub "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/require"
)

// TestGetReleaseRecorded replays a recorded interaction against the real API.
// Record fixtures with:
//
//	MODPUB_VCR_MODE=record GITHUB_TOKEN=your_token go test ./pkg/publisher/github/...
func TestGetReleaseRecorded(t *testing.T) {
	rec, err := NewRecorder(t, "get_latest_release")
	if errors.Is(err, os.ErrNotExist) {
		t.Skip("no recorded fixture; run with MODPUB_VCR_MODE=record to create one")
	}
	require.NoError(t, err)
	defer func() {
		require.NoError(t, rec.Stop())
	}()

	client := gogithub.NewClient(rec.HTTPClient())
	if rec.IsRecording() {
		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			t.Skip("recording requires GITHUB_TOKEN")
		}
		client = client.WithAuthToken(token)
	}

	release, _, err := client.Repositories.GetLatestRelease(context.Background(), "FabricMC", "fabric-loader")
	require.NoError(t, err)
	require.NotEmpty(t, release.GetTagName())
}
