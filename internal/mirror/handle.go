// Package mirror implements the PR-mirror subsystem: the immutable PR
// handle, the per-base-repo working directory cache, and the git worker
// that drives remotes/fetch/ref/push operations against a working clone.
package mirror

import "fmt"

// Handle is the immutable identity of one PR event, derived entirely from
// its payload fields. Two events describing the same PR iteration (same
// number, same fork full name, same head ref) produce identical handles.
type Handle struct {
	BaseFullName    string
	HeadFullName    string
	PRNumber        int
	GitRef          string
	GitHubCloneURL  string
	BaseRepoSSHURL  string
}

// NewHandle derives a Handle from the decoded fields of a Hub PR payload.
func NewHandle(baseFullName, headFullName string, prNumber int, gitref, githubCloneURL, baseRepoSSHURL string) *Handle {
	return &Handle{
		BaseFullName:   baseFullName,
		HeadFullName:   headFullName,
		PRNumber:       prNumber,
		GitRef:         gitref,
		GitHubCloneURL: githubCloneURL,
		BaseRepoSSHURL: baseRepoSSHURL,
	}
}

// GitHubRemote is the name of the fetch remote added for this PR's fork.
func (h *Handle) GitHubRemote() string {
	return fmt.Sprintf("github-%d", h.PRNumber)
}

// GitLabRemote is the name of the push remote shared by every PR of a base repo.
func (h *Handle) GitLabRemote() string {
	return "gitlab"
}

// MirrorRef is the deterministic Lab ref this PR's commits are pushed to.
// It always begins with "refs/heads/pr-".
func (h *Handle) MirrorRef() string {
	return fmt.Sprintf("refs/heads/pr-%d/%s/%s", h.PRNumber, h.HeadFullName, h.GitRef)
}
