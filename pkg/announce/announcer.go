package announce

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/modpub/modpub/pkg/publisher"
)

// Look selects the overall message shape.
type Look string

const (
	// LookClassic sends a plain text body with the links attached.
	LookClassic Look = "classic"
	// LookModern wraps the text body in a leading descriptive embed.
	LookModern Look = "modern"
)

// LinkStyle selects how per-target links are rendered.
type LinkStyle string

const (
	LinkEmbed  LinkStyle = "embed"
	LinkButton LinkStyle = "button"
	LinkInline LinkStyle = "inline"
)

// Transport size limits, modelled as configurable caps. The defaults are
// Discord's documented limits.
const (
	DefaultMaxEmbedsPerMessage = 10
	DefaultMaxButtonsPerRow    = 5
	DefaultMaxRowsPerMessage   = 5
)

// DefaultUsername is the webhook username when none is configured.
const DefaultUsername = "modpub"

// Style is the configured announcement rendering.
type Style struct {
	Look Look      `yaml:"look,omitempty"`
	Link LinkStyle `yaml:"link,omitempty"`
}

// Options configures the announcement stage.
type Options struct {
	WebhookURL string `yaml:"webhookUrl"`

	// DryRunWebhookURL receives announcements of dry runs. When unset, dry
	// runs skip the announcement entirely.
	DryRunWebhookURL string `yaml:"dryRunWebhookUrl,omitempty"`

	Username  string `yaml:"username,omitempty"`
	AvatarURL string `yaml:"avatarUrl,omitempty"`

	// Content is the text body, typically the changelog.
	Content string `yaml:"content,omitempty"`

	Style Style `yaml:"style,omitempty"`

	MaxEmbedsPerMessage int `yaml:"maxEmbedsPerMessage,omitempty"`
	MaxButtonsPerRow    int `yaml:"maxButtonsPerRow,omitempty"`
	MaxRowsPerMessage   int `yaml:"maxRowsPerMessage,omitempty"`
}

// DuplicateTargetError reports two results sharing an announcement URL. The
// messaging platform silently drops duplicate-URL content, so this is a hard
// error raised before anything is sent.
type DuplicateTargetError struct {
	URL string
}

func (e *DuplicateTargetError) Error() string {
	return fmt.Sprintf("duplicate announcement URL: %s", e.URL)
}

// MissingCapabilityError reports a rendering style the webhook cannot carry.
type MissingCapabilityError struct {
	Message string
}

func (e *MissingCapabilityError) Error() string {
	return e.Message
}

// link is one rendered per-target entry.
type link struct {
	title string
	url   string
	color int
}

// Announcer sends one announcement covering a publish run's results.
type Announcer struct {
	opts   Options
	client *Client
	log    *logrus.Logger
}

// AnnouncerOption configures an Announcer
type AnnouncerOption func(*Announcer)

// WithClient sets a custom webhook client
func WithClient(client *Client) AnnouncerOption {
	return func(a *Announcer) {
		a.client = client
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) AnnouncerOption {
	return func(a *Announcer) {
		a.log = log
	}
}

// New creates an announcer. Unset options fall back to the platform's
// documented defaults.
func New(opts Options, announcerOpts ...AnnouncerOption) *Announcer {
	if opts.Username == "" {
		opts.Username = DefaultUsername
	}
	if opts.Style.Look == "" {
		opts.Style.Look = LookClassic
	}
	if opts.Style.Link == "" {
		opts.Style.Link = LinkEmbed
	}
	if opts.MaxEmbedsPerMessage == 0 {
		opts.MaxEmbedsPerMessage = DefaultMaxEmbedsPerMessage
	}
	if opts.MaxButtonsPerRow == 0 {
		opts.MaxButtonsPerRow = DefaultMaxButtonsPerRow
	}
	if opts.MaxRowsPerMessage == 0 {
		opts.MaxRowsPerMessage = DefaultMaxRowsPerMessage
	}

	a := &Announcer{opts: opts}
	for _, opt := range announcerOpts {
		opt(a)
	}
	if a.client == nil {
		a.client = NewClient()
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	return a
}

// Announce renders the results into webhook messages and sends them. In
// dry-run mode without a dry-run webhook the announcement is skipped
// entirely.
//
// Announcement failures never retroactively fail the uploads that produced
// the results.
func (a *Announcer) Announce(ctx context.Context, results []publisher.Result, dryRun bool) error {
	url := a.opts.WebhookURL
	if dryRun {
		if a.opts.DryRunWebhookURL == "" {
			a.log.Info("dry run: no dry-run webhook configured, skipping announcement")
			return nil
		}
		url = a.opts.DryRunWebhookURL
	}

	links, err := buildLinks(results)
	if err != nil {
		return err
	}

	if a.opts.Style.Link == LinkButton {
		owned, err := a.client.IsApplicationOwned(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to check webhook ownership: %w", err)
		}
		if !owned {
			return &MissingCapabilityError{
				Message: "button links require an application-owned webhook; use embed or inline links instead",
			}
		}
	}

	messages := a.buildMessages(links)
	for i, message := range messages {
		if err := a.client.Execute(ctx, url, message); err != nil {
			return fmt.Errorf("failed to send announcement %d of %d: %w", i+1, len(messages), err)
		}
	}

	return nil
}

// buildLinks projects every result into its announcement entry, rejecting
// duplicate URLs.
func buildLinks(results []publisher.Result) ([]link, error) {
	seen := make(map[string]bool, len(results))
	links := make([]link, 0, len(results))

	for _, result := range results {
		url, err := result.Link()
		if err != nil {
			return nil, err
		}
		if seen[url] {
			return nil, &DuplicateTargetError{URL: url}
		}
		seen[url] = true

		links = append(links, link{
			title: result.Title(),
			url:   url,
			color: result.BrandColor(),
		})
	}

	return links, nil
}

// buildMessages renders the links into transport-sized message chunks. The
// text body is attached only to the first message so repeated chunks never
// repeat content. For the modern look the body becomes a leading embed and
// counts against the first message's embed cap.
func (a *Announcer) buildMessages(links []link) []Webhook {
	var messages []Webhook

	switch a.opts.Style.Link {
	case LinkButton:
		messages = a.chunkButtons(links)
		a.attachContent(&messages[0])
	case LinkInline:
		messages = []Webhook{{Content: a.inlineContent(links)}}
	default:
		embeds := make([]Embed, 0, len(links)+1)
		if a.opts.Style.Look == LookModern && a.opts.Content != "" {
			embeds = append(embeds, Embed{Description: a.opts.Content})
		}
		for _, l := range links {
			embeds = append(embeds, Embed{Title: l.title, URL: l.url, Color: l.color})
		}
		messages = a.chunkEmbeds(embeds)
		if a.opts.Style.Look != LookModern {
			a.attachContent(&messages[0])
		}
	}

	for i := range messages {
		messages[i].Username = a.opts.Username
		messages[i].AvatarURL = a.opts.AvatarURL
	}

	return messages
}

// attachContent puts the text body on the first message, as an embed for the
// modern look and as plain content otherwise.
func (a *Announcer) attachContent(first *Webhook) {
	if a.opts.Content == "" {
		return
	}

	if a.opts.Style.Look == LookModern {
		first.Embeds = append([]Embed{{Description: a.opts.Content}}, first.Embeds...)
		return
	}
	first.Content = a.opts.Content
}

func (a *Announcer) chunkEmbeds(embeds []Embed) []Webhook {
	var messages []Webhook

	for start := 0; start < len(embeds); start += a.opts.MaxEmbedsPerMessage {
		end := start + a.opts.MaxEmbedsPerMessage
		if end > len(embeds) {
			end = len(embeds)
		}
		messages = append(messages, Webhook{Embeds: embeds[start:end]})
	}

	if len(messages) == 0 {
		messages = []Webhook{{}}
	}
	return messages
}

func (a *Announcer) chunkButtons(links []link) []Webhook {
	buttons := make([]Button, 0, len(links))
	for _, l := range links {
		buttons = append(buttons, NewLinkButton(l.title, l.url))
	}

	var rows []ActionRow
	for start := 0; start < len(buttons); start += a.opts.MaxButtonsPerRow {
		end := start + a.opts.MaxButtonsPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, NewButtonRow(buttons[start:end]))
	}

	var messages []Webhook
	for start := 0; start < len(rows); start += a.opts.MaxRowsPerMessage {
		end := start + a.opts.MaxRowsPerMessage
		if end > len(rows) {
			end = len(rows)
		}
		messages = append(messages, Webhook{Components: rows[start:end]})
	}

	if len(messages) == 0 {
		messages = []Webhook{{}}
	}
	return messages
}

// inlineContent appends markdown links to the text body.
func (a *Announcer) inlineContent(links []link) string {
	content := a.opts.Content
	for _, l := range links {
		if content != "" {
			content += "\n"
		}
		content += fmt.Sprintf("[%s](%s)", l.title, l.url)
	}
	return content
}

// ReadResults reads the persisted result of every path, in order.
func ReadResults(paths []string) ([]publisher.Result, error) {
	results := make([]publisher.Result, 0, len(paths))
	for _, path := range paths {
		result, err := publisher.ReadResult(path)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
