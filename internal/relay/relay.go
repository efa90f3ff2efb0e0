// Package relay translates recognized PR-comment commands into Lab API
// calls and posts a confirmation comment back to Hub.
package relay

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/verustcode/verustcode/internal/command"
	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/hub"
	"github.com/verustcode/verustcode/internal/lab"
	"github.com/verustcode/verustcode/internal/namemap"
	"github.com/verustcode/verustcode/internal/webhook"
	"github.com/verustcode/verustcode/pkg/logger"
)

// provenanceTrailer is appended as the trailing line of every comment this
// relay posts back to Hub, so an operator who re-enables the self-comment
// check (see SPEC_FULL.md §9) has something to match against.
const provenanceTrailer = "\n\n<sub>source: labhub</sub>"

// withProvenance appends provenanceTrailer to a reply body.
func withProvenance(body string) string {
	return body + provenanceTrailer
}

// Deps are the collaborators the relay needs; callers substitute fakes in tests.
type Deps struct {
	Config *config.Config
	Hub    *hub.Client
	Lab    *lab.Client
	Names  *namemap.Map
}

// Handle parses and, if recognized and enabled, executes one issue-comment
// command. All failures are logged; only UnknownCommand produces a Hub reply.
func Handle(ctx context.Context, deps Deps, evt *webhook.IssueCommentEvent) {
	cmd, parseErr := command.Parse(evt.Comment.Body, deps.Config.GitHub.Username)
	if parseErr != nil {
		if parseErr.Kind == command.UnknownCommand {
			owner, repo, ok := splitFullName(evt.Repository.FullName)
			if ok {
				if err := deps.Hub.CreateIssueComment(ctx, owner, repo, evt.Issue.Number, withProvenance("I don't know that command.")); err != nil {
					logger.Error("failed to post unknown-command reply", zap.Error(err))
				}
			}
			return
		}
		logger.Error("command parse failed", zap.String("kind", parseErrKindString(parseErr.Kind)), zap.String("message", parseErr.Message))
		return
	}

	switch cmd.Verb {
	case command.Retry:
		if !deps.Config.CommandEnabled(config.CommandRetry) {
			logger.Debug("Retry command is not enabled in configuration")
			return
		}
		if err := handleRetry(ctx, deps, evt); err != nil {
			logger.Error("retry command failed", zap.Error(err))
		}
	default:
		logger.Error("parsed command has no handler", zap.String("verb", string(cmd.Verb)))
	}
}

func handleRetry(ctx context.Context, deps Deps, evt *webhook.IssueCommentEvent) error {
	owner, repo, ok := splitFullName(evt.Repository.FullName)
	if !ok {
		return fmt.Errorf("invalid repo name: %q", evt.Repository.FullName)
	}

	pr, err := deps.Hub.GetPull(ctx, owner, repo, evt.Issue.Number)
	if err != nil {
		return err
	}

	labProject := deps.Names.Lookup(evt.Repository.FullName)

	pipeline, err := deps.Lab.FindPipelineBySHA(labProject, pr.HeadSHA)
	if err != nil {
		return err
	}

	if err := deps.Lab.RetryPipeline(labProject, pipeline.ID); err != nil {
		return err
	}

	reply := withProvenance(fmt.Sprintf("Retried pipeline [**%d**](%s) for this pull request.", pipeline.ID, deps.Lab.ExtURL(labProject)))
	if err := deps.Hub.CreateIssueComment(ctx, owner, repo, evt.Issue.Number, reply); err != nil {
		return err
	}

	return nil
}

func splitFullName(fullName string) (owner, repo string, ok bool) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func parseErrKindString(k command.ParseErrorKind) string {
	switch k {
	case command.BadUsername:
		return "BadUsername"
	case command.InvalidFormat:
		return "InvalidFormat"
	case command.InvalidLength:
		return "InvalidLength"
	case command.UnknownCommand:
		return "UnknownCommand"
	default:
		return "Unknown"
	}
}
