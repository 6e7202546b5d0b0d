// Package publisher commits and pushes the update root after a package is built.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
	"github.com/oshokin/update-packager/internal/vcs"
	"github.com/oshokin/update-packager/internal/workdir"
)

// Status is the outcome of a publish attempt.
type Status string

const (
	// StatusPublished means a commit was created and pushed.
	StatusPublished Status = "published"
	// StatusNothingToCommit means the update root had no changes.
	StatusNothingToCommit Status = "nothing_to_commit"
	// StatusSkipped means the update root is not a repository of its own.
	StatusSkipped Status = "skipped"
	// StatusFailed means a version-control operation failed.
	StatusFailed Status = "failed"
)

// CommitMessagePrefix starts every publish commit message.
const CommitMessagePrefix = "Add update package "

// Publisher records the update root in its own repository.
type Publisher struct {
	// client runs the version-control operations.
	client vcs.Client
	// updateRoot is the directory holding version directories and the registry.
	updateRoot string
	// now stamps the commit message.
	now func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithClock replaces the clock used for commit messages.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

// New returns a Publisher for updateRoot.
func New(client vcs.Client, updateRoot string, opts ...Option) *Publisher {
	p := &Publisher{
		client:     client,
		updateRoot: updateRoot,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// CommitMessage returns the message used for a publish at t.
func CommitMessage(t time.Time) string {
	return CommitMessagePrefix + release.VersionAt(t).String()
}

// Publish stages everything in the update root, then commits and pushes when
// there is something to commit. The working directory is switched to the update
// root for the duration of the call.
func (p *Publisher) Publish(ctx context.Context) (Status, error) {
	status := StatusFailed

	err := workdir.Within(p.updateRoot, func() error {
		var err error

		status, err = p.publish(ctx)

		return err
	})
	if err != nil && status != StatusSkipped {
		return StatusFailed, err
	}

	return status, err
}

// publish runs the version-control sequence inside the update root.
func (p *Publisher) publish(ctx context.Context) (Status, error) {
	isRepository, err := p.client.IsRepository(ctx, p.updateRoot)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: %w", release.ErrPublish, err)
	}

	if !isRepository {
		logger.WarnKV(ctx, "Update directory is not a git repository, skipping publish", "dir", p.updateRoot)

		return StatusSkipped, fmt.Errorf("%w: %s", release.ErrNotARepository, p.updateRoot)
	}

	if err = p.client.StageAll(ctx, p.updateRoot); err != nil {
		return StatusFailed, fmt.Errorf("%w: stage: %w", release.ErrPublish, err)
	}

	hasChanges, err := p.client.HasStagedChanges(ctx, p.updateRoot)
	if err != nil {
		return StatusFailed, fmt.Errorf("%w: %w", release.ErrPublish, err)
	}

	if !hasChanges {
		logger.Info(ctx, "Nothing to commit in the update directory")

		return StatusNothingToCommit, nil
	}

	message := CommitMessage(p.now())

	if err = p.client.CommitAndPush(ctx, p.updateRoot, message); err != nil {
		return StatusFailed, fmt.Errorf("%w: %w", release.ErrPublish, err)
	}

	logger.InfoKV(ctx, "Published update directory", "message", message)

	return StatusPublished, nil
}
