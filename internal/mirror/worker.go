package mirror

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/verustcode/verustcode/pkg/errors"
	"github.com/verustcode/verustcode/pkg/logger"
)

// gitOperationTimeout bounds any single git invocation so a hung network
// call cannot block an event handler indefinitely.
const gitOperationTimeout = 5 * time.Minute

// Worker performs the git-plumbing operations needed to mirror one PR
// iteration from Hub to Lab inside an already-cloned working directory.
type Worker interface {
	// AddRemotes ensures the github fork remote and the gitlab push remote
	// exist in dir, pointing at githubURL and gitlabURL respectively.
	AddRemotes(ctx context.Context, dir, githubRemote, githubURL, gitlabRemote, gitlabURL string) error
	// FetchGitHubRemote fetches gitref from githubRemote.
	FetchGitHubRemote(ctx context.Context, dir, githubRemote, gitref string) error
	// CreateRefForPR resolves refs/remotes/{githubRemote}/{gitref} and
	// force-creates a local ref named mirrorRef pointing at that commit.
	CreateRefForPR(ctx context.Context, dir, githubRemote, gitref, mirrorRef string) error
	// PushPRRef force-pushes the local mirrorRef to the identically named
	// ref on gitlabRemote.
	PushPRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error
	// DeletePRRef deletes mirrorRef on gitlabRemote. Used when a PR closes.
	DeletePRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error
}

// ExecWorker is the real Worker implementation, shelling out to the system
// git binary. Network operations against a given remote authenticate with
// the SSH key configured for that provider (see sshCommandEnv), the same
// username-"git"+key-file credential go-git's ssh.NewPublicKeysFromFile
// builds; an empty key path falls back to the ambient ssh-agent/known-hosts
// the host environment provides.
type ExecWorker struct {
	hubSSHKeyPath string
	labSSHKeyPath string
}

// NewExecWorker returns the real git-binary-backed Worker. hubSSHKeyPath and
// labSSHKeyPath are private key files (config.HubConfig.SSHKey and
// config.LabConfig.SSHKey) used to authenticate to each provider's remotes;
// either may be empty to rely on the ambient ssh-agent instead.
func NewExecWorker(hubSSHKeyPath, labSSHKeyPath string) *ExecWorker {
	return &ExecWorker{hubSSHKeyPath: hubSSHKeyPath, labSSHKeyPath: labSSHKeyPath}
}

// sshCommandEnv returns the GIT_SSH_COMMAND environment entry that makes
// git authenticate with keyPath, or nil if keyPath is empty. IdentitiesOnly
// prevents ssh-agent from offering other identities first and masking a
// configured key that Lab/Hub hasn't been granted access for.
func sshCommandEnv(keyPath string) []string {
	if keyPath == "" {
		return nil
	}
	return []string{fmt.Sprintf("GIT_SSH_COMMAND=ssh -i %s -o StrictHostKeyChecking=accept-new -o IdentitiesOnly=yes", keyPath)}
}

func (w *ExecWorker) AddRemotes(ctx context.Context, dir, githubRemote, githubURL, gitlabRemote, gitlabURL string) error {
	if err := cleanupStaleLock(dir); err != nil {
		return err
	}
	if err := setRemote(ctx, dir, githubRemote, githubURL); err != nil {
		return err
	}
	return setRemote(ctx, dir, gitlabRemote, gitlabURL)
}

func setRemote(ctx context.Context, dir, name, url string) error {
	if err := run(ctx, dir, nil, "remote", "add", name, url); err != nil {
		// Remote may already exist from a prior event against this cached
		// clone; reconcile its URL instead of failing.
		if rerr := run(ctx, dir, nil, "remote", "set-url", name, url); rerr != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorGit, fmt.Sprintf("failed to configure remote %s", name), rerr)
		}
	}
	return nil
}

func (w *ExecWorker) FetchGitHubRemote(ctx context.Context, dir, githubRemote, gitref string) error {
	if err := cleanupStaleLock(dir); err != nil {
		return err
	}
	if err := run(ctx, dir, sshCommandEnv(w.hubSSHKeyPath), "fetch", "--no-tags", githubRemote, gitref); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorGit, "failed to fetch fork ref", err)
	}
	return nil
}

func (w *ExecWorker) CreateRefForPR(ctx context.Context, dir, githubRemote, gitref, mirrorRef string) error {
	remoteRef := fmt.Sprintf("refs/remotes/%s/%s", githubRemote, gitref)
	if err := run(ctx, dir, nil, "update-ref", mirrorRef, remoteRef); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorGit, "failed to create local mirror ref", err)
	}
	return nil
}

func (w *ExecWorker) PushPRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error {
	if err := cleanupStaleLock(dir); err != nil {
		return err
	}
	refspec := fmt.Sprintf("+%s:%s", mirrorRef, mirrorRef)
	if err := run(ctx, dir, sshCommandEnv(w.labSSHKeyPath), "push", gitlabRemote, refspec); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorGit, "failed to push mirror ref", err)
	}
	return nil
}

func (w *ExecWorker) DeletePRRef(ctx context.Context, dir, gitlabRemote, mirrorRef string) error {
	if err := cleanupStaleLock(dir); err != nil {
		return err
	}
	if err := run(ctx, dir, sshCommandEnv(w.labSSHKeyPath), "push", gitlabRemote, "--delete", mirrorRef); err != nil {
		logger.Warn("failed to delete mirror ref, it may already be gone",
			zap.String("ref", mirrorRef),
			zap.Error(err),
		)
		return nil
	}
	return nil
}

// CloneRepo clones cloneURL into dir with a full history fetch, suitable
// as the clone callback passed to Cache.Acquire. sshKeyPath authenticates
// the clone the same way the other Hub-side operations do; it may be empty.
func CloneRepo(ctx context.Context, dir, cloneURL, sshKeyPath string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, gitOperationTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, "git", "clone", "--no-tags", cloneURL, dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Env = append(append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0"), sshCommandEnv(sshKeyPath)...)

	if err := cmd.Run(); err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("git clone timed out after %v: %w", gitOperationTimeout, err)
		}
		return fmt.Errorf("git clone failed: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

// cleanupStaleLock removes a leftover .git/index.lock from a previous
// process that crashed mid-operation. Callers hold the Cache's per-repo
// mutex, which rules out a concurrent git operation from this process in
// dir, so any lock found here is treated as stale.
func cleanupStaleLock(dir string) error {
	lockPath := filepath.Join(dir, ".git", "index.lock")
	if _, err := os.Stat(lockPath); err == nil {
		logger.Warn("removing stale git index lock", zap.String("path", lockPath))
		if rmErr := os.Remove(lockPath); rmErr != nil {
			return pkgerrors.Wrap(pkgerrors.ErrCodeMirrorGit, "failed to remove stale git lock", rmErr)
		}
	}
	return nil
}

// run invokes git -C dir <args...>, authenticating with the SSH command in
// sshEnv (from sshCommandEnv) when the operation touches a remote; sshEnv is
// nil for purely local plumbing that needs no credentials.
func run(ctx context.Context, dir string, sshEnv []string, args ...string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, gitOperationTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, "git", append([]string{"-C", dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Env = append(append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0"), sshEnv...)

	if err := cmd.Run(); err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("git %v timed out after %v: %w", args, gitOperationTimeout, err)
		}
		return fmt.Errorf("git %v failed: %w (stderr: %s)", args, err, stderr.String())
	}
	return nil
}
