// Package announce renders persisted publish results into webhook messages.
package announce

import (
	"context"

	"github.com/modpub/modpub/pkg/api"
)

// Discord component type and button style identifiers.
// https://discord.com/developers/docs/interactions/message-components
const (
	componentTypeActionRow = 1
	componentTypeButton    = 2
	buttonStyleLink        = 5
)

// Webhook is the message payload of a webhook execution.
// https://discord.com/developers/docs/resources/webhook#execute-webhook
type Webhook struct {
	Content    string      `json:"content,omitempty"`
	Username   string      `json:"username,omitempty"`
	AvatarURL  string      `json:"avatar_url,omitempty"`
	Embeds     []Embed     `json:"embeds,omitempty"`
	Components []ActionRow `json:"components,omitempty"`
}

// Embed is a rich content block in a message.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color,omitempty"`
}

// ActionRow groups up to five buttons on one row.
type ActionRow struct {
	Type       int      `json:"type"`
	Components []Button `json:"components"`
}

// Button is a link button attached to a message.
type Button struct {
	Type  int    `json:"type"`
	Style int    `json:"style"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// NewButtonRow builds an action row from buttons.
func NewButtonRow(buttons []Button) ActionRow {
	return ActionRow{Type: componentTypeActionRow, Components: buttons}
}

// NewLinkButton builds a link-style button.
func NewLinkButton(label, url string) Button {
	return Button{Type: componentTypeButton, Style: buttonStyleLink, Label: label, URL: url}
}

// webhookInfo is the answer to a GET on the webhook URL. ApplicationID is
// null for webhooks not owned by an application.
type webhookInfo struct {
	ApplicationID *string `json:"application_id"`
}

// Client executes webhook requests.
type Client struct {
	client *api.Client
}

// NewClient creates a webhook client.
func NewClient() *Client {
	return &Client{client: api.NewClient()}
}

// Execute posts one message to the webhook.
func (c *Client) Execute(ctx context.Context, url string, webhook Webhook) error {
	return c.client.Post(ctx, url, webhook, nil, nil)
}

// IsApplicationOwned reports whether the webhook belongs to an application.
// Button components are only delivered on application-owned webhooks.
func (c *Client) IsApplicationOwned(ctx context.Context, url string) (bool, error) {
	var info webhookInfo
	if err := c.client.Get(ctx, url, nil, &info); err != nil {
		return false, err
	}
	return info.ApplicationID != nil, nil
}
