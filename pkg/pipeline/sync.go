package pipeline

import "context"

// RepoSyncer is the pre-prompt synchronization contract. It never fails hard:
// the outcome is the success flag plus a log describing what happened.
type RepoSyncer interface {
	Sync(ctx context.Context, branch string, envOverrides map[string]string) (bool, string)
}

// GitSyncer fast-forwards the journal repository from origin.
type GitSyncer struct {
	git *GitRunner
}

func NewGitSyncer(repoRoot string) *GitSyncer {
	return &GitSyncer{git: NewGitRunner(repoRoot)}
}

func (s *GitSyncer) Sync(ctx context.Context, branch string, envOverrides map[string]string) (bool, string) {
	return s.git.PullFFOnly(ctx, envOverrides, branch)
}
