package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/hub"
	"github.com/verustcode/verustcode/internal/lab"
	"github.com/verustcode/verustcode/internal/namemap"
	"github.com/verustcode/verustcode/internal/webhook"
)

func newEvent(body string) *webhook.IssueCommentEvent {
	return &webhook.IssueCommentEvent{
		Action: "created",
		Issue: webhook.Issue{
			Number:      42,
			User:        webhook.User{Login: "forker"},
			PullRequest: &webhook.IssueLinkedPR{URL: "https://api.github.com/repos/acme/widgets/pulls/42"},
		},
		Comment:    webhook.Comment{Body: body},
		Repository: webhook.Repository{FullName: "acme/widgets"},
		Sender:     webhook.User{Login: "forker"},
	}
}

// mustHubClientAt builds a Hub client against a TLS test server, skipping
// certificate verification since the server uses a self-signed cert.
func mustHubClientAt(t *testing.T, srv *httptest.Server) *hub.Client {
	t.Helper()
	apiHost := strings.TrimPrefix(srv.URL, "https://")
	c, err := hub.NewClient(apiHost, "", true)
	require.NoError(t, err)
	return c
}

func mustLabClientAt(t *testing.T, url string) *lab.Client {
	t.Helper()
	c, err := lab.NewClient(url, "token")
	require.NoError(t, err)
	return c
}

func TestHandle_Retry_EndToEnd(t *testing.T) {
	var retriedID string
	var commentBody string

	hubSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/pulls/42"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"number": 42,
				"head":   map[string]interface{}{"sha": "abc", "ref": "feature/x", "repo": map[string]interface{}{}},
				"base":   map[string]interface{}{"repo": map[string]interface{}{}},
			})
		case strings.Contains(r.URL.Path, "/issues/42/comments"):
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			commentBody = body["body"]
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 1})
		}
	}))
	defer hubSrv.Close()

	labSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/pipelines/7/retry"):
			retriedID = "7"
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 7})
		case strings.Contains(r.URL.Path, "/pipelines"):
			page := r.URL.Query().Get("page")
			if page == "" || page == "1" {
				json.NewEncoder(w).Encode([]map[string]interface{}{{"id": 7, "sha": "abc"}})
			} else {
				json.NewEncoder(w).Encode([]map[string]interface{}{})
			}
		}
	}))
	defer labSrv.Close()

	cfg := config.Default()
	cfg.GitHub.Username = "bot"

	deps := Deps{
		Config: cfg,
		Hub:    mustHubClientAt(t, hubSrv),
		Lab:    mustLabClientAt(t, labSrv.URL),
		Names:  namemap.New(nil),
	}

	Handle(context.Background(), deps, newEvent("@bot retry"))

	assert.Equal(t, "7", retriedID)
	assert.Contains(t, commentBody, "pipeline [**7**]")
	assert.Contains(t, commentBody, "source: labhub")
}

func TestHandle_UnknownCommand_PostsReply(t *testing.T) {
	var commentBody string
	hubSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/issues/42/comments") {
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			commentBody = body["body"]
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 1})
		}
	}))
	defer hubSrv.Close()

	cfg := config.Default()
	cfg.GitHub.Username = "bot"

	deps := Deps{
		Config: cfg,
		Hub:    mustHubClientAt(t, hubSrv),
		Names:  namemap.New(nil),
	}

	Handle(context.Background(), deps, newEvent("@bot frobnicate"))

	assert.Contains(t, commentBody, "don't know that command")
	assert.Contains(t, commentBody, "source: labhub")
}

func TestHandle_BadUsername_NoReply(t *testing.T) {
	called := false
	hubSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer hubSrv.Close()

	cfg := config.Default()
	cfg.GitHub.Username = "bot"

	deps := Deps{
		Config: cfg,
		Hub:    mustHubClientAt(t, hubSrv),
		Names:  namemap.New(nil),
	}

	Handle(context.Background(), deps, newEvent("@someone retry"))

	assert.False(t, called)
}

func TestHandle_RetryDisabled_NoLabCall(t *testing.T) {
	labHit := false
	labSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		labHit = true
	}))
	defer labSrv.Close()

	cfg := config.Default()
	cfg.GitHub.Username = "bot"
	cfg.EnabledCommands = []string{}

	deps := Deps{
		Config: cfg,
		Lab:    mustLabClientAt(t, labSrv.URL),
		Names:  namemap.New(nil),
	}

	Handle(context.Background(), deps, newEvent("@bot retry"))

	assert.False(t, labHit)
}
