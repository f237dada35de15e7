// Package jira provides the issue-tracker client and the ticket
// resolver used to enrich commit logs. The client is a thin wrapper
// over the tracker's REST API; the resolver layers run-scoped caching,
// request coalescing, and bounded concurrency on top of it.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raveheart1/tracklog/internal/changelog"
	"github.com/raveheart1/tracklog/internal/retry"
)

// Config holds the tracker connection settings.
type Config struct {
	// Host is the API host, e.g. "https://company.atlassian.net".
	Host     string
	Username string
	Token    string
	// BaseURL is the web base used to build browse links. Defaults to
	// Host when empty.
	BaseURL string
}

// Client is a thin issue-tracker API wrapper. It holds no per-run
// state; caching belongs to the Resolver.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a tracker client for the given settings.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the tracker integration is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Token != ""
}

// BaseURL returns the web base URL for ticket links.
func (c *Client) BaseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return c.cfg.Host
}

// issuePayload mirrors the subset of the tracker issue schema the
// pipeline needs.
type issuePayload struct {
	Key    string `json:"key"`
	Fields struct {
		IssueType struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Status struct {
			Name string `json:"name"`
		} `json:"status"`
		Summary  string `json:"summary"`
		Reporter struct {
			EmailAddress string `json:"emailAddress"`
			DisplayName  string `json:"displayName"`
		} `json:"reporter"`
	} `json:"fields"`
	ErrorMessages []string `json:"errorMessages"`
}

// FetchTicket fetches a single ticket by key. Tracker-side error
// payloads and transport errors both surface as errors; the caller
// decides whether they are fatal.
func (c *Client) FetchTicket(ctx context.Context, key string) (*changelog.Ticket, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("jira integration is not configured")
	}

	url := fmt.Sprintf("%s/rest/api/2/issue/%s", strings.TrimSuffix(c.cfg.Host, "/"), key)

	var payload issuePayload
	err := retry.Do(ctx, retry.Defaults, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Fatal(err)
		}
		req.SetBasicAuth(c.cfg.Username, c.cfg.Token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("tracker returned %s", resp.Status)
		default:
			return retry.Fatal(trackerError(resp.Status, body))
		}

		if err := json.Unmarshal(body, &payload); err != nil {
			return retry.Fatal(fmt.Errorf("decoding ticket %s: %w", key, err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching ticket %s: %w", key, err)
	}

	if len(payload.ErrorMessages) > 0 {
		return nil, fmt.Errorf("fetching ticket %s: %s", key, strings.Join(payload.ErrorMessages, "; "))
	}

	return &changelog.Ticket{
		Key:     payload.Key,
		Type:    payload.Fields.IssueType.Name,
		Status:  payload.Fields.Status.Name,
		Summary: payload.Fields.Summary,
		Reporter: changelog.Reporter{
			Name:  payload.Fields.Reporter.DisplayName,
			Email: payload.Fields.Reporter.EmailAddress,
		},
	}, nil
}

// trackerError extracts the tracker's error messages from a non-OK
// response body, falling back to the HTTP status.
func trackerError(status string, body []byte) error {
	var payload struct {
		ErrorMessages []string `json:"errorMessages"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.ErrorMessages) > 0 {
		return fmt.Errorf("tracker error: %s", strings.Join(payload.ErrorMessages, "; "))
	}
	return fmt.Errorf("tracker returned %s", status)
}
