package jira

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(host string) Config {
	return Config{Host: host, Username: "bot@example.com", Token: "secret"}
}

func TestFetchTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/2/issue/PROJ-42", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "secret", pass)

		fmt.Fprint(w, `{
			"key": "PROJ-42",
			"fields": {
				"issuetype": {"name": "Bug"},
				"status": {"name": "Done"},
				"summary": "Fix login redirect",
				"reporter": {"emailAddress": "ann@example.com", "displayName": "Ann Example"}
			}
		}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	ticket, err := client.FetchTicket(context.Background(), "PROJ-42")

	require.NoError(t, err)
	assert.Equal(t, "PROJ-42", ticket.Key)
	assert.Equal(t, "Bug", ticket.Type)
	assert.Equal(t, "Done", ticket.Status)
	assert.Equal(t, "Fix login redirect", ticket.Summary)
	assert.Equal(t, "Ann Example", ticket.Reporter.Name)
	assert.Equal(t, "ann@example.com", ticket.Reporter.Email)
}

func TestFetchTicketTrackerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorMessages": ["Issue does not exist or you do not have permission to see it."]}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.FetchTicket(context.Background(), "PROJ-404")

	require.Error(t, err)
	assert.ErrorContains(t, err, "PROJ-404")
	assert.ErrorContains(t, err, "Issue does not exist")
}

func TestFetchTicketRetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"key": "PROJ-7", "fields": {"summary": "Recovered"}}`)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	ticket, err := client.FetchTicket(context.Background(), "PROJ-7")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Recovered", ticket.Summary)
}

func TestFetchTicketDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.FetchTicket(context.Background(), "PROJ-8")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchTicketRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{Host: "https://example.atlassian.net"})

	_, err := client.FetchTicket(context.Background(), "PROJ-1")

	assert.ErrorContains(t, err, "not configured")
	assert.False(t, client.Enabled())
}

func TestBaseURL(t *testing.T) {
	tests := map[string]struct {
		cfg  Config
		want string
	}{
		"falls back to host": {
			cfg:  Config{Host: "https://api.example.com"},
			want: "https://api.example.com",
		},
		"prefers explicit base url": {
			cfg:  Config{Host: "https://api.example.com", BaseURL: "https://tickets.example.com"},
			want: "https://tickets.example.com",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewClient(tc.cfg).BaseURL())
		})
	}
}
