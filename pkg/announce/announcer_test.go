package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modpub/modpub/pkg/publisher"
)

// webhookServer records every executed webhook payload.
type webhookServer struct {
	*httptest.Server

	mu               sync.Mutex
	messages         []Webhook
	applicationOwned bool
}

func newWebhookServer(t *testing.T) *webhookServer {
	t.Helper()

	s := &webhookServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if s.applicationOwned {
				fmt.Fprint(w, `{"application_id":"1234567890"}`)
			} else {
				fmt.Fprint(w, `{"application_id":null}`)
			}
		case http.MethodPost:
			var message Webhook
			require.NoError(t, json.NewDecoder(r.Body).Decode(&message))

			s.mu.Lock()
			s.messages = append(s.messages, message)
			s.mu.Unlock()

			w.WriteHeader(http.StatusNoContent)
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func githubResults(n int) []publisher.Result {
	results := make([]publisher.Result, 0, n)
	for i := 0; i < n; i++ {
		results = append(results, &publisher.GithubResult{
			Repository:   "owner/repo",
			ReleaseID:    int64(i),
			URL:          fmt.Sprintf("https://github.com/owner/repo/releases/tag/v%d", i),
			DisplayTitle: fmt.Sprintf("Download %d", i),
		})
	}
	return results
}

func TestAnnounceEmbeds(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Content:    "# Release notes",
	})

	results := []publisher.Result{
		&publisher.CurseforgeResult{ProjectSlug: "example-mod", FileID: 42, DisplayTitle: "Download from CurseForge"},
		&publisher.ModrinthResult{VersionID: "IIJJKKLL", ProjectID: "AABBCCDD", DisplayTitle: "Download from Modrinth"},
	}

	require.NoError(t, announcer.Announce(context.Background(), results, false))

	require.Len(t, server.messages, 1)
	message := server.messages[0]
	assert.Equal(t, "# Release notes", message.Content)
	assert.Equal(t, DefaultUsername, message.Username)

	require.Len(t, message.Embeds, 2)
	assert.Equal(t, "Download from CurseForge", message.Embeds[0].Title)
	assert.Equal(t, "https://curseforge.com/minecraft/mc-mods/example-mod/files/42", message.Embeds[0].URL)
	assert.Equal(t, publisher.BrandColorCurseforge, message.Embeds[0].Color)
	assert.Equal(t, publisher.BrandColorModrinth, message.Embeds[1].Color)
}

func TestAnnounceChunksEmbeds(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Content:    "notes",
	})

	require.NoError(t, announcer.Announce(context.Background(), githubResults(25), false))

	require.Len(t, server.messages, 3)
	assert.Len(t, server.messages[0].Embeds, 10)
	assert.Len(t, server.messages[1].Embeds, 10)
	assert.Len(t, server.messages[2].Embeds, 5)

	// The text body rides only on the first chunk.
	assert.Equal(t, "notes", server.messages[0].Content)
	assert.Empty(t, server.messages[1].Content)
	assert.Empty(t, server.messages[2].Content)

	for _, message := range server.messages {
		assert.Equal(t, DefaultUsername, message.Username)
	}
}

func TestAnnounceModernLook(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Content:    "notes",
		Style:      Style{Look: LookModern},
	})

	require.NoError(t, announcer.Announce(context.Background(), githubResults(2), false))

	require.Len(t, server.messages, 1)
	message := server.messages[0]
	assert.Empty(t, message.Content)
	require.Len(t, message.Embeds, 3)
	assert.Equal(t, "notes", message.Embeds[0].Description)
	assert.Equal(t, "Download 0", message.Embeds[1].Title)
}

func TestAnnounceModernLookChunksWithinEmbedCap(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Content:    "notes",
		Style:      Style{Look: LookModern},
	})

	require.NoError(t, announcer.Announce(context.Background(), githubResults(25), false))

	require.Len(t, server.messages, 3)
	for i, message := range server.messages {
		assert.LessOrEqual(t, len(message.Embeds), DefaultMaxEmbedsPerMessage, "message %d exceeds the embed cap", i)
		assert.Empty(t, message.Content)
	}

	// The descriptive embed takes the first slot, pushing the last link
	// into the final chunk.
	assert.Equal(t, "notes", server.messages[0].Embeds[0].Description)
	assert.Len(t, server.messages[0].Embeds, 10)
	assert.Len(t, server.messages[2].Embeds, 6)
	assert.Equal(t, "Download 24", server.messages[2].Embeds[5].Title)
}

func TestAnnounceButtons(t *testing.T) {
	server := newWebhookServer(t)
	server.applicationOwned = true

	announcer := New(Options{
		WebhookURL: server.URL,
		Style:      Style{Link: LinkButton},
	})

	require.NoError(t, announcer.Announce(context.Background(), githubResults(60), false))

	// 60 buttons fill 12 rows of 5; 5 rows per message gives 3 messages.
	require.Len(t, server.messages, 3)
	assert.Len(t, server.messages[0].Components, 5)
	assert.Len(t, server.messages[1].Components, 5)
	assert.Len(t, server.messages[2].Components, 2)

	row := server.messages[0].Components[0]
	assert.Equal(t, 1, row.Type)
	require.Len(t, row.Components, 5)
	assert.Equal(t, 2, row.Components[0].Type)
	assert.Equal(t, 5, row.Components[0].Style)
	assert.Equal(t, "Download 0", row.Components[0].Label)
}

func TestAnnounceButtonsNeedApplicationWebhook(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Style:      Style{Link: LinkButton},
	})

	err := announcer.Announce(context.Background(), githubResults(1), false)
	var capErr *MissingCapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Empty(t, server.messages)
}

func TestAnnounceInlineLinks(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{
		WebhookURL: server.URL,
		Content:    "notes",
		Style:      Style{Link: LinkInline},
	})

	require.NoError(t, announcer.Announce(context.Background(), githubResults(2), false))

	require.Len(t, server.messages, 1)
	assert.Equal(t,
		"notes\n[Download 0](https://github.com/owner/repo/releases/tag/v0)\n[Download 1](https://github.com/owner/repo/releases/tag/v1)",
		server.messages[0].Content)
	assert.Empty(t, server.messages[0].Embeds)
}

func TestAnnounceDuplicateURLs(t *testing.T) {
	server := newWebhookServer(t)

	announcer := New(Options{WebhookURL: server.URL})

	results := []publisher.Result{
		&publisher.GithubResult{URL: "https://example.com/release", DisplayTitle: "a"},
		&publisher.GithubResult{URL: "https://example.com/release", DisplayTitle: "b"},
	}

	err := announcer.Announce(context.Background(), results, false)
	var dupErr *DuplicateTargetError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "https://example.com/release", dupErr.URL)
	// Nothing may be sent once a duplicate is found.
	assert.Empty(t, server.messages)
}

func TestAnnounceDryRun(t *testing.T) {
	t.Run("skipped without dry-run webhook", func(t *testing.T) {
		server := newWebhookServer(t)
		announcer := New(Options{WebhookURL: server.URL})

		require.NoError(t, announcer.Announce(context.Background(), githubResults(1), true))
		assert.Empty(t, server.messages)
	})

	t.Run("dry-run webhook receives the announcement", func(t *testing.T) {
		real := newWebhookServer(t)
		staging := newWebhookServer(t)

		announcer := New(Options{
			WebhookURL:       real.URL,
			DryRunWebhookURL: staging.URL,
		})

		require.NoError(t, announcer.Announce(context.Background(), githubResults(1), true))
		assert.Empty(t, real.messages)
		assert.Len(t, staging.messages, 1)
	})
}

func TestAnnounceMissingLinkFails(t *testing.T) {
	server := newWebhookServer(t)
	announcer := New(Options{WebhookURL: server.URL})

	// A CurseForge result without a slug cannot produce a link.
	results := []publisher.Result{&publisher.CurseforgeResult{FileID: 42}}

	err := announcer.Announce(context.Background(), results, false)
	require.Error(t, err)
	assert.Empty(t, server.messages)
}

func TestReadResults(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "github.json")
	second := filepath.Join(dir, "modrinth.json")
	require.NoError(t, publisher.WriteResult(first, &publisher.GithubResult{URL: "https://example.com/a"}))
	require.NoError(t, publisher.WriteResult(second, &publisher.ModrinthResult{VersionID: "IIJJKKLL", ProjectID: "AABBCCDD"}))

	results, err := ReadResults([]string{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, publisher.KindGithub, results[0].Kind())
	assert.Equal(t, publisher.KindModrinth, results[1].Kind())

	_, err = ReadResults([]string{filepath.Join(dir, "missing.json")})
	require.Error(t, err)
}
