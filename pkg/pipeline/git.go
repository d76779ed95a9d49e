package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// GitRunner shells out to git inside the journal repository. The write-back
// pipeline and the pre-prompt sync both go through it.
type GitRunner struct {
	RepoRoot string
}

func NewGitRunner(repoRoot string) *GitRunner {
	return &GitRunner{RepoRoot: repoRoot}
}

// run executes a git command with optional environment overrides and returns
// the combined trimmed output.
func (g *GitRunner) run(ctx context.Context, envOverrides map[string]string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.RepoRoot

	env := os.Environ()
	for key, value := range envOverrides {
		env = append(env, key+"="+value)
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := joinFragments(stdout.String(), stderr.String())
	if err != nil {
		return output, fmt.Errorf("git %s: %w", args[0], err)
	}
	return output, nil
}

func joinFragments(fragments ...string) string {
	var kept []string
	for _, frag := range fragments {
		if trimmed := strings.TrimSpace(frag); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}

func (g *GitRunner) Add(ctx context.Context, relPath string) error {
	_, err := g.run(ctx, nil, "add", relPath)
	return err
}

func (g *GitRunner) Commit(ctx context.Context, message string) error {
	_, err := g.run(ctx, nil, "commit", "-m", message)
	return err
}

func (g *GitRunner) Push(ctx context.Context, env map[string]string, remote, branch string) error {
	args := []string{"push"}
	if remote != "" {
		args = append(args, remote)
	}
	if branch != "" {
		args = append(args, branch)
	}
	_, err := g.run(ctx, env, args...)
	return err
}

// PullFFOnly runs a fast-forward-only pull against the target branch. It never
// returns an error: the outcome is the success flag plus a log string.
func (g *GitRunner) PullFFOnly(ctx context.Context, env map[string]string, branch string) (bool, string) {
	output, err := g.run(ctx, env, "pull", "--ff-only", "origin", branch)
	if err != nil {
		if output == "" {
			output = "git pull failed without output."
		}
		return false, output
	}
	if output == "" {
		output = "git pull completed."
	}
	return true, output
}

// RevParseShort returns the short hash of HEAD.
func (g *GitRunner) RevParseShort(ctx context.Context) (string, error) {
	output, err := g.run(ctx, nil, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return output, nil
}

// IsTracked reports whether a path is known to git. Used to refuse key files
// that would leak the journal secret into version control.
func (g *GitRunner) IsTracked(ctx context.Context, relPath string) bool {
	_, err := g.run(ctx, nil, "ls-files", "--error-unmatch", relPath)
	return err == nil
}
