package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/verustcode/internal/config"
	"github.com/verustcode/verustcode/internal/mirror"
	"github.com/verustcode/verustcode/internal/namemap"
)

const openPRNonForkJSON = `{
	"action": "opened",
	"pull_request": {
		"number": 1,
		"head": {"ref": "main", "sha": "abc", "repo": {"ssh_url": "git@github.com:acme/widgets.git", "full_name": "acme/widgets", "fork": false}},
		"base": {"repo": {"full_name": "acme/widgets", "ssh_url": "git@github.com:acme/widgets.git"}}
	},
	"repository": {"ssh_url": "git@github.com:acme/widgets.git", "full_name": "acme/widgets"}
}`

const openPRForkJSON = `{
	"action": "opened",
	"pull_request": {
		"number": 42,
		"head": {"ref": "feature/x", "sha": "deadbeef", "repo": {"ssh_url": "git@github.com:forker/widgets.git", "full_name": "forker/widgets", "fork": true}},
		"base": {"repo": {"full_name": "acme/widgets", "ssh_url": "git@github.com:acme/widgets.git"}}
	},
	"repository": {"ssh_url": "git@github.com:acme/widgets.git", "full_name": "acme/widgets"}
}`

const closePRForkJSON = `{
	"action": "closed",
	"pull_request": {
		"number": 42,
		"head": {"ref": "feature/x", "sha": "deadbeef", "repo": {"ssh_url": "git@github.com:forker/widgets.git", "full_name": "forker/widgets", "fork": true}},
		"base": {"repo": {"full_name": "acme/widgets", "ssh_url": "git@github.com:acme/widgets.git"}}
	},
	"repository": {"ssh_url": "git@github.com:acme/widgets.git", "full_name": "acme/widgets"}
}`

func fakeClone(ctx context.Context, dir, cloneURL string) error {
	return os.MkdirAll(filepath.Join(dir, ".git"), 0755)
}

func newTestDispatcher(t *testing.T, cfg *config.Config) (*Dispatcher, *mirror.FakeWorker) {
	t.Helper()
	worker := mirror.NewFakeWorker()
	d := New(cfg, mirror.NewCache(t.TempDir()), worker, nil, nil, namemap.New(nil))
	d.cloneFn = fakeClone
	return d, worker
}

func TestHandleGitHubEvent_NonForkPR_NoGitCalls(t *testing.T) {
	d, worker := newTestDispatcher(t, config.Default())

	msg, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(openPRNonForkJSON))
	require.NoError(t, err)
	assert.Equal(t, "pull_request event processed", msg)
	assert.Empty(t, worker.Calls)
}

func TestHandleGitHubEvent_ForkPR_Opened_DrivesMirrorFlow(t *testing.T) {
	d, worker := newTestDispatcher(t, config.Default())

	_, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(openPRForkJSON))
	require.NoError(t, err)

	require.Len(t, worker.Calls, 4)
	assert.Equal(t, "AddRemotes", worker.Calls[0].Op)
	assert.Equal(t, "FetchGitHubRemote", worker.Calls[1].Op)
	assert.Equal(t, "CreateRefForPR", worker.Calls[2].Op)
	assert.Equal(t, "PushPRRef", worker.Calls[3].Op)

	mirrorRef := worker.Calls[3].Args[len(worker.Calls[3].Args)-1]
	assert.Equal(t, "refs/heads/pr-42/forker/widgets/feature/x", mirrorRef)
}

func TestHandleGitHubEvent_ForkPR_Closed_DeletesRefOnly(t *testing.T) {
	d, worker := newTestDispatcher(t, config.Default())

	_, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(closePRForkJSON))
	require.NoError(t, err)

	require.Len(t, worker.Calls, 2)
	assert.Equal(t, "AddRemotes", worker.Calls[0].Op)
	assert.Equal(t, "DeletePRRef", worker.Calls[1].Op)
}

func TestHandleGitHubEvent_ExternalPrDisabled_NoGitCalls(t *testing.T) {
	cfg := config.Default()
	cfg.Features = []string{config.FeatureCommands}
	d, worker := newTestDispatcher(t, cfg)

	_, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(openPRForkJSON))
	require.NoError(t, err)
	assert.Empty(t, worker.Calls)
}

func TestHandleGitHubEvent_ActionNotAllowed_NoGitCalls(t *testing.T) {
	cfg := config.Default()
	cfg.EnabledActions = []string{"synchronize"}
	d, worker := newTestDispatcher(t, cfg)

	_, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(openPRForkJSON))
	require.NoError(t, err)
	assert.Empty(t, worker.Calls)
}

func TestHandleGitHubEvent_Push_Acknowledged(t *testing.T) {
	d, worker := newTestDispatcher(t, config.Default())

	msg, err := d.HandleGitHubEvent(context.Background(), "push", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "push event acknowledged", msg)
	assert.Empty(t, worker.Calls)
}

func TestHandleGitHubEvent_UnknownEventType_Unhandled(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Default())

	msg, err := d.HandleGitHubEvent(context.Background(), "star", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "unhandled event type", msg)
}

func TestHandleGitHubEvent_MalformedBody_DecodeError(t *testing.T) {
	d, _ := newTestDispatcher(t, config.Default())

	_, err := d.HandleGitHubEvent(context.Background(), "pull_request", []byte(`not json`))
	assert.Error(t, err)
}
