// Package gitlab provides the code-host client: merged merge requests
// for the changelog window and release creation. An unconfigured
// integration degrades to empty results rather than errors.
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/raveheart1/tracklog/internal/changelog"
	"github.com/raveheart1/tracklog/internal/retry"
)

// Config holds the code-host connection settings.
type Config struct {
	// Host is the instance root, e.g. "https://gitlab.example.com".
	Host string
	// User is the namespace (user or organization) owning the project.
	User  string
	Token string
}

// Client is a thin code-host API wrapper.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a code-host client for the given settings.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether the code-host integration is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Host != "" && c.cfg.User != "" && c.cfg.Token != ""
}

// Host returns the configured instance root.
func (c *Client) Host() string { return c.cfg.Host }

// User returns the configured project namespace.
func (c *Client) User() string { return c.cfg.User }

type mergeRequestPayload struct {
	IID      int        `json:"iid"`
	Title    string     `json:"title"`
	WebURL   string     `json:"web_url"`
	MergedAt *time.Time `json:"merged_at"`
	Author   struct {
		Name string `json:"name"`
	} `json:"author"`
}

// MergeRequests returns the project's merge requests merged between
// since and until; a zero until leaves the window open-ended. Result
// pages are followed via the X-Next-Page header until exhausted. An
// unconfigured integration returns an empty list, not an error.
func (c *Client) MergeRequests(ctx context.Context, projectID string, since, until time.Time) ([]changelog.MergeRequest, error) {
	if !c.Enabled() {
		return nil, nil
	}

	var mrs []changelog.MergeRequest
	for page := "1"; page != ""; {
		endpoint := fmt.Sprintf("projects/%s/merge_requests?state=merged&updated_after=%s&per_page=100&page=%s",
			c.projectPath(projectID), url.QueryEscape(since.Format(time.RFC3339)), page)

		var payload []mergeRequestPayload
		header, err := c.doWithHeader(ctx, http.MethodGet, endpoint, nil, &payload)
		if err != nil {
			return nil, fmt.Errorf("loading merge requests: %w", err)
		}

		for _, mr := range payload {
			if mr.MergedAt == nil || mr.MergedAt.Before(since) {
				continue
			}
			if !until.IsZero() && mr.MergedAt.After(until) {
				continue
			}
			mrs = append(mrs, changelog.MergeRequest{
				ID:       mr.IID,
				Title:    mr.Title,
				WebURL:   mr.WebURL,
				MergedAt: *mr.MergedAt,
				Author:   mr.Author.Name,
			})
		}

		page = header.Get("X-Next-Page")
	}
	return mrs, nil
}

// CreateRelease creates a release for an existing tag.
func (c *Client) CreateRelease(ctx context.Context, projectID, tag, description string) error {
	if !c.Enabled() {
		return fmt.Errorf("gitlab integration is not configured")
	}

	body := url.Values{}
	body.Set("name", tag)
	body.Set("tag_name", tag)
	body.Set("description", description)

	endpoint := fmt.Sprintf("projects/%s/releases", c.projectPath(projectID))
	var payload struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, endpoint, body, &payload); err != nil {
		return fmt.Errorf("creating release %s: %w", tag, err)
	}
	return nil
}

// projectPath URL-encodes the namespaced project identifier.
func (c *Client) projectPath(projectID string) string {
	return url.PathEscape(c.cfg.User + "/" + projectID)
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	_, err := c.doWithHeader(ctx, method, endpoint, form, out)
	return err
}

// doWithHeader performs one API request, decodes the JSON response into
// out, and returns the response headers so callers can follow
// pagination.
func (c *Client) doWithHeader(ctx context.Context, method, endpoint string, form url.Values, out any) (http.Header, error) {
	fullURL := strings.TrimSuffix(c.cfg.Host, "/") + "/api/v4/" + endpoint

	var header http.Header
	err := retry.Do(ctx, retry.Defaults, func() error {
		var reqBody io.Reader
		if form != nil {
			reqBody = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
		if err != nil {
			return retry.Fatal(err)
		}
		req.Header.Set("PRIVATE-TOKEN", c.cfg.Token)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("code host returned %s", resp.Status)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.Fatal(fmt.Errorf("code host returned %s", resp.Status))
		}
		header = resp.Header

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Fatal(fmt.Errorf("decoding %s response: %w", endpoint, err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return header, nil
}
