package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/AbdullahP/pokealert/pkg/types"
)

// Embed colors per stock status.
const (
	colorGreen  = 0x2ECC71 // back in stock
	colorRed    = 0xE74C3C // sold out
	colorOrange = 0xE67E22 // pre-order / price movement
)

const defaultAPIURL = "https://discord.com/api/v10"

// DiscordTransport implements Transport via the Discord REST API,
// posting embeds to the destination channel with a bot token.
type DiscordTransport struct {
	token  string
	apiURL string
	client *http.Client
}

// DiscordOption configures a DiscordTransport.
type DiscordOption func(*DiscordTransport)

// WithAPIURL overrides the Discord API base URL (used in tests).
func WithAPIURL(u string) DiscordOption {
	return func(d *DiscordTransport) {
		d.apiURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordTransport) {
		d.client = c
	}
}

// NewDiscordTransport creates a transport authenticated with the given
// bot token.
func NewDiscordTransport(token string, opts ...DiscordOption) *DiscordTransport {
	d := &DiscordTransport{
		token:  token,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// discordMessage is the channel message JSON structure.
type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

// Send posts the payload as an embed to the channel.
func (d *DiscordTransport) Send(ctx context.Context, channelID int64, payload domain.Payload, mentions []string) error {
	msg := discordMessage{
		Content: strings.Join(mentions, " "),
		Embeds:  []discordEmbed{buildEmbed(payload)},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return &SendError{Kind: SendInvalid, Retriable: false, Err: err}
	}

	url := fmt.Sprintf("%s/channels/%d/messages", d.apiURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &SendError{Kind: SendInvalid, Retriable: false, Err: err}
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &SendError{Kind: SendNetwork, Retriable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := fmt.Errorf("discord API status %d: %s", resp.StatusCode, string(respBody))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &SendError{Kind: SendRateLimited, Retriable: true, Err: apiErr}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return &SendError{Kind: SendPermission, Retriable: false, Err: apiErr}
	case resp.StatusCode >= 500:
		return &SendError{Kind: SendServer, Retriable: true, Err: apiErr}
	default:
		return &SendError{Kind: SendInvalid, Retriable: false, Err: apiErr}
	}
}

func buildEmbed(p domain.Payload) discordEmbed {
	embed := discordEmbed{
		Title:       p.Title,
		URL:         p.URL,
		Color:       p.Color,
		Description: p.Description,
		Fields: []discordEmbedField{
			{Name: "Status", Value: string(p.Status), Inline: true},
			{Name: "Price", Value: p.Price, Inline: true},
			{Name: "Site", Value: p.Site, Inline: true},
		},
	}
	if p.DeliveryInfo != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Delivery", Value: p.DeliveryInfo, Inline: true,
		})
	}
	if p.PurchaseURL != "" && p.PurchaseURL != p.URL {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Buy", Value: p.PurchaseURL, Inline: false,
		})
	}
	if p.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: p.ImageURL}
	}
	if !p.Timestamp.IsZero() {
		embed.Timestamp = p.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}
