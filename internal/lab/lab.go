// Package lab wraps the Lab (GitLab) API surface this bridge needs: listing
// and retrying pipelines for a given commit SHA.
package lab

import (
	"fmt"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	pkgerrors "github.com/verustcode/verustcode/pkg/errors"
	"github.com/verustcode/verustcode/pkg/logger"
)

const defaultPerPage = 100

// Pipeline is the projection of a Lab pipeline this bridge cares about.
type Pipeline struct {
	ID  int
	SHA string
}

// Client talks to the Lab REST API.
type Client struct {
	client  *gitlab.Client
	baseURL string
}

// NewClient builds a Lab client for the given base URL (e.g. https://gitlab.com)
// and private token.
func NewClient(baseURL, token string) (*Client, error) {
	opts := []gitlab.ClientOptionFunc{}
	if baseURL != "" && baseURL != "https://gitlab.com" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeMirrorLab, "failed to create lab client", err)
	}

	return &Client{client: client, baseURL: baseURL}, nil
}

// FindPipelineBySHA pages through the project's pipelines (100 per page,
// starting at page 1) and returns the first one matching sha, stopping as
// soon as a match is found — later pages are never requested. Returns an
// E7006 logic error if no page yields a match.
func (c *Client) FindPipelineBySHA(projectFullName, sha string) (*Pipeline, error) {
	pid := projectFullName
	page := 1

	for {
		pipelines, _, err := c.client.Pipelines.ListProjectPipelines(pid, &gitlab.ListProjectPipelinesOptions{
			ListOptions: gitlab.ListOptions{
				Page:    page,
				PerPage: defaultPerPage,
			},
		})
		if err != nil {
			logger.Error("lab list pipelines failed", zap.String("project", projectFullName), zap.Error(err))
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodeMirrorLab, "failed to list pipelines", err)
		}

		for _, p := range pipelines {
			if p.SHA == sha {
				return &Pipeline{ID: p.ID, SHA: p.SHA}, nil
			}
		}

		if len(pipelines) < defaultPerPage {
			break
		}
		page++
	}

	return nil, pkgerrors.New(pkgerrors.ErrCodeMirrorLogic,
		fmt.Sprintf("no pipeline found for sha %s in %s", sha, projectFullName))
}

// RetryPipeline re-triggers the given pipeline ID on the project.
func (c *Client) RetryPipeline(projectFullName string, pipelineID int) error {
	pid := projectFullName
	_, _, err := c.client.Pipelines.RetryPipelineBuild(pid, pipelineID)
	if err != nil {
		logger.Error("lab retry pipeline failed",
			zap.String("project", projectFullName), zap.Int("pipeline_id", pipelineID), zap.Error(err))
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorLab, "failed to retry pipeline", err)
	}
	return nil
}

// ExtURL builds the external (UI) URL for a project on this Lab instance.
func (c *Client) ExtURL(projectFullName string) string {
	base := strings.TrimSuffix(c.baseURL, "/")
	if base == "" {
		base = "https://gitlab.com"
	}
	return fmt.Sprintf("%s/%s", base, projectFullName)
}
