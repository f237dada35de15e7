// Package slack provides the chat-platform client: the user directory
// used to match commit authors to chat identities, and message posting
// with the platform's size-limit splitting rule.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/raveheart1/tracklog/internal/changelog"
	"github.com/raveheart1/tracklog/internal/retry"
)

// DefaultAPIURL is the chat platform API root.
const DefaultAPIURL = "https://slack.com/api"

// Config holds the chat integration settings.
type Config struct {
	Token   string
	Channel string
	// Username, IconEmoji and IconURL style the bot that posts the
	// changelog. IconEmoji and IconURL are mutually exclusive.
	Username  string
	IconEmoji string
	IconURL   string
	// APIURL overrides the API root (used by tests).
	APIURL string
}

// Client talks to the chat platform. The user directory is loaded at
// most once per Client; construct a fresh Client per run.
type Client struct {
	cfg  Config
	http *http.Client

	usersOnce sync.Once
	users     []changelog.ChatIdentity
	usersErr  error
}

// NewClient returns a chat client for the given settings.
func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the chat integration is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Token != ""
}

// Channel returns the configured changelog channel.
func (c *Client) Channel() string {
	return c.cfg.Channel
}

type userPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Profile struct {
		Email              string `json:"email"`
		DisplayName        string `json:"display_name"`
		RealName           string `json:"real_name"`
		RealNameNormalized string `json:"real_name_normalized"`
	} `json:"profile"`
}

// Users returns the full user directory snapshot, fetching it on first
// call and serving the cached copy afterwards. A disabled integration
// yields an empty directory, not an error.
func (c *Client) Users(ctx context.Context) ([]changelog.ChatIdentity, error) {
	if !c.Enabled() {
		return nil, nil
	}

	c.usersOnce.Do(func() {
		c.users, c.usersErr = c.fetchUsers(ctx)
	})
	return c.users, c.usersErr
}

func (c *Client) fetchUsers(ctx context.Context) ([]changelog.ChatIdentity, error) {
	var payload struct {
		OK      bool          `json:"ok"`
		Error   string        `json:"error"`
		Members []userPayload `json:"members"`
	}
	if err := c.call(ctx, "users.list", nil, &payload); err != nil {
		return nil, fmt.Errorf("loading chat user directory: %w", err)
	}
	if !payload.OK {
		return nil, fmt.Errorf("loading chat user directory: %s", payload.Error)
	}

	users := make([]changelog.ChatIdentity, 0, len(payload.Members))
	for _, m := range payload.Members {
		display := m.Profile.DisplayName
		if display == "" {
			display = m.Name
		}
		users = append(users, changelog.ChatIdentity{
			ID:                 m.ID,
			DisplayName:        display,
			Email:              m.Profile.Email,
			RealName:           m.Profile.RealName,
			RealNameNormalized: m.Profile.RealNameNormalized,
		})
	}
	return users, nil
}

// FindUser matches a commit author to a chat identity: first by
// case-insensitive exact email, then by case-insensitive exact match
// against the real or normalized real name. The first directory entry
// that matches wins. Directory load failures degrade to "no identity";
// they never fail the pipeline.
func (c *Client) FindUser(ctx context.Context, email, name string) (*changelog.ChatIdentity, bool) {
	users, err := c.Users(ctx)
	if err != nil || len(users) == 0 {
		return nil, false
	}

	email = strings.ToLower(email)
	for i := range users {
		if users[i].Email != "" && strings.ToLower(users[i].Email) == email {
			return &users[i], true
		}
	}

	if name == "" {
		return nil, false
	}
	name = strings.ToLower(name)
	for i := range users {
		if (users[i].RealName != "" && strings.ToLower(users[i].RealName) == name) ||
			(users[i].RealNameNormalized != "" && strings.ToLower(users[i].RealNameNormalized) == name) {
			return &users[i], true
		}
	}
	return nil, false
}

// PostMessage posts content to a channel, splitting it into multiple
// sequential posts when it exceeds the platform size limit. An empty
// channel falls back to the configured one.
func (c *Client) PostMessage(ctx context.Context, content, channel string) error {
	if content == "" {
		return fmt.Errorf("no content to post")
	}
	if !c.Enabled() {
		return fmt.Errorf("slack integration is not configured")
	}
	if channel == "" {
		channel = c.cfg.Channel
	}
	if channel == "" {
		return fmt.Errorf("no slack channel configured")
	}

	for _, chunk := range SplitMessage(content, MessageSizeLimit) {
		if err := c.postChunk(ctx, chunk, channel); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) postChunk(ctx context.Context, text, channel string) error {
	body := url.Values{}
	body.Set("channel", channel)
	body.Set("text", text)
	if c.cfg.Username != "" {
		body.Set("username", c.cfg.Username)
	}
	if c.cfg.IconEmoji != "" {
		body.Set("icon_emoji", c.cfg.IconEmoji)
	} else if c.cfg.IconURL != "" {
		body.Set("icon_url", c.cfg.IconURL)
	}

	var payload struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := c.call(ctx, "chat.postMessage", body, &payload); err != nil {
		return fmt.Errorf("posting to %s: %w", channel, err)
	}
	if !payload.OK {
		return fmt.Errorf("posting to %s: %s", channel, payload.Error)
	}
	return nil
}

// call performs one API request and decodes the JSON response into out.
func (c *Client) call(ctx context.Context, endpoint string, form url.Values, out any) error {
	endpointURL := strings.TrimSuffix(c.cfg.APIURL, "/") + "/" + endpoint

	return retry.Do(ctx, retry.Defaults, func() error {
		method := http.MethodGet
		var reqBody io.Reader
		if form != nil {
			method = http.MethodPost
			reqBody = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, endpointURL, reqBody)
		if err != nil {
			return retry.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("chat API returned %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Fatal(fmt.Errorf("chat API returned %s", resp.Status))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Fatal(fmt.Errorf("decoding %s response: %w", endpoint, err))
		}
		return nil
	})
}
