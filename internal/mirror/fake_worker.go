package mirror

import "context"

// call records one invocation made against a FakeWorker, for assertions in
// tests that exercise the dispatcher/relay without a real git binary.
type call struct {
	Op   string
	Args []string
}

// FakeWorker is an in-memory Worker that records every call instead of
// shelling out, for use by tests of callers that depend on the Worker
// interface.
type FakeWorker struct {
	Calls []call
	Err   error
}

// NewFakeWorker returns a FakeWorker that succeeds on every call.
func NewFakeWorker() *FakeWorker {
	return &FakeWorker{}
}

func (f *FakeWorker) record(op string, args ...string) error {
	f.Calls = append(f.Calls, call{Op: op, Args: args})
	return f.Err
}

func (f *FakeWorker) AddRemotes(ctx context.Context, dir, githubRemote, githubURL, gitlabRemote, gitlabURL string) error {
	return f.record("AddRemotes", dir, githubRemote, githubURL, gitlabRemote, gitlabURL)
}

func (f *FakeWorker) FetchGitHubRemote(ctx context.Context, dir, githubRemote, gitref string) error {
	return f.record("FetchGitHubRemote", dir, githubRemote, gitref)
}

func (f *FakeWorker) CreateRefForPR(ctx context.Context, dir, githubRemote, gitref, mirrorRef string) error {
	return f.record("CreateRefForPR", dir, githubRemote, gitref, mirrorRef)
}

func (f *FakeWorker) PushPRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error {
	return f.record("PushPRRef", dir, gitlabRemote, mirrorRef)
}

func (f *FakeWorker) DeletePRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error {
	return f.record("DeletePRRef", dir, gitlabRemote, mirrorRef)
}
