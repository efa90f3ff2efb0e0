// Package webhook defines the minimal JSON projections the core decodes
// from Hub and Lab webhook payloads and API responses.
package webhook

// PullRequestEvent is the Hub "pull_request" webhook payload, projected
// down to the fields the mirror cares about.
type PullRequestEvent struct {
	Action      string      `json:"action"`
	PullRequest PullRequest `json:"pull_request"`
	Repository  Repository  `json:"repository"`
}

// PullRequest is the pull_request object inside a PullRequestEvent.
type PullRequest struct {
	Number int   `json:"number"`
	Head   Ref   `json:"head"`
	Base   struct {
		Repo Repository `json:"repo"`
	} `json:"base"`
}

// Ref is a head/base ref descriptor.
type Ref struct {
	Ref  string     `json:"ref"`
	SHA  string     `json:"sha"`
	Repo Repository `json:"repo"`
}

// Repository is the subset of a Hub repository object the core needs.
type Repository struct {
	SSHURL   string `json:"ssh_url"`
	FullName string `json:"full_name"`
	Fork     bool   `json:"fork"`
}

// IsFork reports whether the PR's head repository is a fork of the base.
func (e *PullRequestEvent) IsFork() bool {
	return e.PullRequest.Head.Repo.Fork
}

// IssueCommentEvent is the Hub "issue_comment" webhook payload.
type IssueCommentEvent struct {
	Action     string     `json:"action"`
	Issue      Issue      `json:"issue"`
	Comment    Comment    `json:"comment"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// Issue is the issue object inside an IssueCommentEvent.
type Issue struct {
	Number      int             `json:"number"`
	User        User            `json:"user"`
	PullRequest *IssueLinkedPR `json:"pull_request,omitempty"`
}

// IssueLinkedPR is present on Issue only when the issue is itself a PR.
type IssueLinkedPR struct {
	URL string `json:"url"`
}

// HasPullRequest reports whether this issue_comment event is attached to a PR.
func (e *IssueCommentEvent) HasPullRequest() bool {
	return e.Issue.PullRequest != nil
}

// Comment is the comment object inside an IssueCommentEvent.
type Comment struct {
	Body string `json:"body"`
}

// User is a Hub user reference.
type User struct {
	Login string `json:"login"`
}

// PipelinesPage is the Lab API response for one page of pipeline listings.
type PipelinesPage struct {
	Pipelines []PipelineRecord
}

// PipelineRecord is one Lab pipeline projection.
type PipelineRecord struct {
	ID  int    `json:"id"`
	SHA string `json:"sha"`
}
