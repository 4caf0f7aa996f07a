package github

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	vcr "gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// recorderMode determines whether we're recording or replaying
type recorderMode int

const (
	// modeReplay uses existing fixtures only
	modeReplay recorderMode = iota
	// modeRecord records new fixtures (overwrites existing)
	modeRecord
)

// getRecorderMode determines the recorder mode from environment
func getRecorderMode() recorderMode {
	if os.Getenv("MODPUB_VCR_MODE") == "record" {
		return modeRecord
	}
	return modeReplay
}

// NewRecorder creates a VCR recorder for testing real GitHub API
// interactions.
//
// In replay mode (default) it serves recorded fixtures from
// testdata/fixtures/; in record mode (MODPUB_VCR_MODE=record) it records new
// interactions against the live API, which requires a real token:
//
//	MODPUB_VCR_MODE=record GITHUB_TOKEN=your_token go test ./pkg/publisher/github/...
func NewRecorder(t *testing.T, name string) (*Recorder, error) {
	t.Helper()

	mode := getRecorderMode()

	// go-vcr adds the ".yaml" extension itself.
	fixturePath := filepath.Join("testdata", "fixtures", name)

	vcrMode := vcr.ModeReplaying
	if mode == modeRecord {
		vcrMode = vcr.ModeRecording
	}

	r, err := vcr.NewAsMode(fixturePath, vcrMode, nil)
	if err != nil {
		if errors.Is(err, cassette.ErrCassetteNotFound) {
			return nil, fmt.Errorf("cassette %q not found: %w", fixturePath, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}

	// Never save credentials into fixtures.
	r.AddSaveFilter(func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		return nil
	})

	return &Recorder{recorder: r, mode: mode}, nil
}

// Recorder wraps a go-vcr recorder for GitHub driver tests.
type Recorder struct {
	recorder *vcr.Recorder
	mode     recorderMode
}

// Stop stops the recorder
func (r *Recorder) Stop() error {
	if r.recorder != nil {
		if err := r.recorder.Stop(); err != nil {
			return fmt.Errorf("failed to stop recorder: %w", err)
		}
	}
	return nil
}

// IsRecording returns true if we're in record mode
func (r *Recorder) IsRecording() bool {
	return r.mode == modeRecord
}

// HTTPClient returns an HTTP client that serves from the recorder
func (r *Recorder) HTTPClient() *http.Client {
	return &http.Client{
		Transport: r.recorder,
	}
}
