// Package hub wraps the Hub (GitHub) API surface this bridge needs: fetching
// pull request details and posting issue comments.
package hub

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	pkgerrors "github.com/verustcode/verustcode/pkg/errors"
	"github.com/verustcode/verustcode/pkg/logger"
)

// PullRequest is the projection of a Hub pull request this bridge cares about.
type PullRequest struct {
	Number      int
	HeadRef     string
	HeadSHA     string
	HeadRepoURL string // ssh_url of head.repo
	HeadFull    string // full_name of head.repo
	HeadIsFork  bool
	BaseRepoURL string // ssh_url of base.repo
	BaseFull    string // full_name of base.repo
}

// Client talks to the Hub REST API.
type Client struct {
	client *github.Client
}

// NewClient builds a Hub client for the given API hostname (as returned by
// config.HubConfig.APIHost) and bearer token.
func NewClient(apiHost, token string, insecureSkipVerify bool) (*Client, error) {
	ctx := context.Background()

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	} else {
		httpClient = &http.Client{}
	}

	if insecureSkipVerify {
		transport, ok := httpClient.Transport.(*http.Transport)
		if !ok {
			transport = &http.Transport{}
		}
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
		httpClient.Transport = transport
	}

	client := github.NewClient(httpClient)

	if apiHost != "" && apiHost != "api.github.com" {
		enterpriseURL := fmt.Sprintf("https://%s/", apiHost)
		enterpriseClient, err := client.WithEnterpriseURLs(enterpriseURL, enterpriseURL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeMirrorHub, "failed to create enterprise hub client", err)
		}
		client = enterpriseClient
	}

	return &Client{client: client}, nil
}

// GetPull fetches pull request details for owner/repo#number.
func (c *Client) GetPull(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		logger.Error("hub get pull failed",
			zap.String("owner", owner), zap.String("repo", repo), zap.Int("number", number), zap.Error(err))
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeMirrorHub, "failed to get pull request", err)
	}

	head := pr.GetHead()
	base := pr.GetBase()

	return &PullRequest{
		Number:      pr.GetNumber(),
		HeadRef:     head.GetRef(),
		HeadSHA:     head.GetSHA(),
		HeadRepoURL: head.GetRepo().GetSSHURL(),
		HeadFull:    head.GetRepo().GetFullName(),
		HeadIsFork:  head.GetRepo().GetFork(),
		BaseRepoURL: base.GetRepo().GetSSHURL(),
		BaseFull:    base.GetRepo().GetFullName(),
	}, nil
}

// CreateIssueComment posts a comment on the given PR/issue number.
func (c *Client) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: &body}
	_, _, err := c.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		logger.Error("hub create issue comment failed",
			zap.String("owner", owner), zap.String("repo", repo), zap.Int("number", number), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorHub, "failed to create issue comment", err)
	}
	return nil
}

// ValidatePayload verifies a webhook request's HMAC signature against secret,
// accepting either the legacy X-Hub-Signature (SHA-1) or X-Hub-Signature-256
// header, and returns the validated raw body.
func ValidatePayload(r *http.Request, secret string) ([]byte, error) {
	return github.ValidatePayload(r, []byte(secret))
}
