// Package dispatch routes decoded Hub webhook events to the mirror and
// command-relay subsystems, acknowledging the HTTP caller unconditionally
// for every event type the core recognizes.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/hub"
	"github.com/verustcode/verustcode/internal/lab"
	"github.com/verustcode/verustcode/internal/mirror"
	"github.com/verustcode/verustcode/internal/namemap"
	"github.com/verustcode/verustcode/internal/relay"
	"github.com/verustcode/verustcode/internal/webhook"
	"github.com/verustcode/verustcode/pkg/logger"
)

// Dispatcher routes one decoded Hub event at a time. It never returns an
// error for domain failures inside a mirror or relay flow — those are
// logged internally — so the HTTP layer can always acknowledge with 200.
type Dispatcher struct {
	cfg       *config.Config
	cache     *mirror.Cache
	worker    mirror.Worker
	hubClient *hub.Client
	labClient *lab.Client
	names     *namemap.Map

	// cloneFn performs the initial clone of a base repository into a cache
	// entry's working directory. Defaults to mirror.CloneRepo; tests
	// substitute a fake so they never shell out to git.
	cloneFn func(ctx context.Context, dir, cloneURL string) error
}

// New builds a Dispatcher wired to the given collaborators. The base repo
// being mirrored always lives on Hub, so its initial clone authenticates
// with cfg.GitHub.SSHKey.
func New(cfg *config.Config, cache *mirror.Cache, worker mirror.Worker, hubClient *hub.Client, labClient *lab.Client, names *namemap.Map) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		cache:     cache,
		worker:    worker,
		hubClient: hubClient,
		labClient: labClient,
		names:     names,
		cloneFn: func(ctx context.Context, dir, cloneURL string) error {
			return mirror.CloneRepo(ctx, dir, cloneURL, cfg.GitHub.SSHKey)
		},
	}
}

// HandleGitHubEvent dispatches one Hub webhook event by its X-GitHub-Event
// header value and raw JSON body. The returned string is the short
// human-readable acknowledgement to send back with HTTP 200; err is only
// ever non-nil for pre-dispatch decode failures, which the caller should
// surface as 400.
func (d *Dispatcher) HandleGitHubEvent(ctx context.Context, eventType string, body []byte) (string, error) {
	switch eventType {
	case "push":
		logger.Info("received push event, acknowledging without action")
		return "push event acknowledged", nil

	case "pull_request":
		var evt webhook.PullRequestEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			return "", fmt.Errorf("decode pull_request event: %w", err)
		}
		d.handlePullRequest(ctx, &evt)
		return "pull_request event processed", nil

	case "issue_comment":
		var evt webhook.IssueCommentEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			return "", fmt.Errorf("decode issue_comment event: %w", err)
		}
		d.handleIssueComment(ctx, &evt)
		return "issue_comment event processed", nil

	default:
		logger.Info("unhandled event type", zap.String("event_type", eventType))
		return "unhandled event type", nil
	}
}

func (d *Dispatcher) handlePullRequest(ctx context.Context, evt *webhook.PullRequestEvent) {
	if !d.cfg.HasFeature(config.FeatureExternalPR) {
		logger.Debug("ExternalPr feature disabled, acknowledging without action")
		return
	}
	if !evt.IsFork() {
		logger.Debug("PR head repo is not a fork, acknowledging without action",
			zap.Int("pr_number", evt.PullRequest.Number),
		)
		return
	}
	if !d.cfg.HandlesAction(evt.Action) {
		logger.Debug("PR action not in allow-list, acknowledging without action",
			zap.String("action", evt.Action),
		)
		return
	}

	h := mirror.NewHandle(
		evt.PullRequest.Base.Repo.FullName,
		evt.PullRequest.Head.Repo.FullName,
		evt.PullRequest.Number,
		evt.PullRequest.Head.Ref,
		evt.PullRequest.Head.Repo.SSHURL,
		evt.Repository.SSHURL,
	)

	labFullName := d.names.Lookup(h.BaseFullName)
	labURL := fmt.Sprintf("git@%s:%s.git", d.cfg.GitLab.Hostname, labFullName)

	if err := d.mirrorPR(ctx, evt.Action, h, labURL); err != nil {
		logger.Error("mirror flow failed, acknowledging anyway",
			zap.Int("pr_number", h.PRNumber),
			zap.String("action", evt.Action),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) mirrorPR(ctx context.Context, action string, h *mirror.Handle, labURL string) error {
	dir, release, err := d.cache.Acquire(ctx, h.BaseRepoSSHURL, func(ctx context.Context, dir string) error {
		return d.cloneFn(ctx, dir, h.BaseRepoSSHURL)
	})
	if err != nil {
		return err
	}
	defer release()

	if err := d.worker.AddRemotes(ctx, dir, h.GitHubRemote(), h.GitHubCloneURL, h.GitLabRemote(), labURL); err != nil {
		return err
	}

	if action == "closed" {
		return d.worker.DeletePRRef(ctx, dir, h.GitLabRemote(), h.MirrorRef())
	}

	if err := d.worker.FetchGitHubRemote(ctx, dir, h.GitHubRemote(), h.GitRef); err != nil {
		return err
	}
	if err := d.worker.CreateRefForPR(ctx, dir, h.GitHubRemote(), h.GitRef, h.MirrorRef()); err != nil {
		return err
	}
	return d.worker.PushPRRef(ctx, dir, h.GitLabRemote(), h.MirrorRef())
}

func (d *Dispatcher) handleIssueComment(ctx context.Context, evt *webhook.IssueCommentEvent) {
	if !d.cfg.HasFeature(config.FeatureCommands) {
		logger.Debug("Commands feature disabled, acknowledging without action")
		return
	}
	if !evt.HasPullRequest() {
		logger.Debug("issue_comment not attached to a PR, acknowledging without action")
		return
	}

	relay.Handle(ctx, relay.Deps{
		Config: d.cfg,
		Hub:    d.hubClient,
		Lab:    d.labClient,
		Names:  d.names,
	}, evt)
}
