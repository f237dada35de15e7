package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directoryJSON = `{
	"ok": true,
	"members": [
		{
			"id": "U100",
			"name": "ann",
			"profile": {
				"email": "Ann@Example.com",
				"display_name": "ann.dev",
				"real_name": "Ann Example",
				"real_name_normalized": "Ann Example"
			}
		},
		{
			"id": "U200",
			"name": "bob",
			"profile": {
				"email": "bob@example.com",
				"display_name": "",
				"real_name": "Bób Builder",
				"real_name_normalized": "Bob Builder"
			}
		}
	]
}`

func directoryServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/users.list") {
			*calls++
			fmt.Fprint(w, directoryJSON)
			return
		}
		http.NotFound(w, r)
	}))
}

func TestUsersFetchedOnce(t *testing.T) {
	var calls int
	srv := directoryServer(t, &calls)
	defer srv.Close()

	client := NewClient(Config{Token: "xoxb-test", APIURL: srv.URL})

	first, err := client.Users(context.Background())
	require.NoError(t, err)
	second, err := client.Users(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, "ann.dev", first[0].DisplayName)
	// An empty display name falls back to the account name.
	assert.Equal(t, "bob", first[1].DisplayName)
}

func TestUsersDisabledIntegration(t *testing.T) {
	client := NewClient(Config{})

	users, err := client.Users(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, users)
}

func TestFindUser(t *testing.T) {
	tests := map[string]struct {
		email  string
		name   string
		wantID string
		found  bool
	}{
		"matches email case-insensitively": {
			email:  "ann@example.com",
			name:   "",
			wantID: "U100",
			found:  true,
		},
		"email wins over name": {
			email:  "bob@example.com",
			name:   "Ann Example",
			wantID: "U200",
			found:  true,
		},
		"falls back to real name": {
			email:  "ann@elsewhere.com",
			name:   "ann example",
			wantID: "U100",
			found:  true,
		},
		"falls back to normalized real name": {
			email:  "bob@elsewhere.com",
			name:   "bob builder",
			wantID: "U200",
			found:  true,
		},
		"no match": {
			email: "carol@example.com",
			name:  "Carol",
			found: false,
		},
		"empty name never matches by name": {
			email: "nobody@example.com",
			name:  "",
			found: false,
		},
	}

	var calls int
	srv := directoryServer(t, &calls)
	defer srv.Close()
	client := NewClient(Config{Token: "xoxb-test", APIURL: srv.URL})

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			identity, ok := client.FindUser(context.Background(), tc.email, tc.name)
			require.Equal(t, tc.found, ok)
			if tc.found {
				assert.Equal(t, tc.wantID, identity.ID)
			} else {
				assert.Nil(t, identity)
			}
		})
	}
}

func TestFindUserDegradesOnDirectoryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "invalid_auth"}`)
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "xoxb-bad", APIURL: srv.URL})

	identity, ok := client.FindUser(context.Background(), "ann@example.com", "Ann Example")

	assert.False(t, ok)
	assert.Nil(t, identity)
}

func TestPostMessageSplitsLongContent(t *testing.T) {
	var posts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat.postMessage"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "#releases", r.PostForm.Get("channel"))
		assert.Equal(t, "Changelog Bot", r.PostForm.Get("username"))
		posts = append(posts, r.PostForm.Get("text"))
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer srv.Close()

	client := NewClient(Config{
		Token:    "xoxb-test",
		Channel:  "#releases",
		Username: "Changelog Bot",
		APIURL:   srv.URL,
	})

	content := strings.Repeat("* [PROJ-1] A long entry in the changelog body\n", 200)
	err := client.PostMessage(context.Background(), content, "")

	require.NoError(t, err)
	require.Greater(t, len(posts), 1)
	for _, post := range posts {
		assert.LessOrEqual(t, len(post), MessageSizeLimit)
	}
	assert.Equal(t, content, strings.Join(posts, ""))
}

func TestPostMessageValidation(t *testing.T) {
	tests := map[string]struct {
		cfg     Config
		content string
		channel string
		wantErr string
	}{
		"empty content": {
			cfg:     Config{Token: "xoxb-test", Channel: "#releases"},
			content: "",
			wantErr: "no content",
		},
		"disabled integration": {
			cfg:     Config{Channel: "#releases"},
			content: "notes",
			wantErr: "not configured",
		},
		"no channel anywhere": {
			cfg:     Config{Token: "xoxb-test"},
			content: "notes",
			wantErr: "no slack channel",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := NewClient(tc.cfg).PostMessage(context.Background(), tc.content, tc.channel)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestPostMessageSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "channel_not_found"}`)
	}))
	defer srv.Close()

	client := NewClient(Config{Token: "xoxb-test", APIURL: srv.URL})

	err := client.PostMessage(context.Background(), "notes", "#missing")

	assert.ErrorContains(t, err, "channel_not_found")
}
