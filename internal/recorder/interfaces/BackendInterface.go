package interfaces

import (
	"archivist/internal/models"
	"context"
	"regexp"
	"time"
)

// HEAD names the most recent version in Restore calls.
const HEAD = "HEAD"

// BackendInterface is the append-only version-control capability the
// repository is built on. Paths are slash separated and relative to Path().
// Listings return the most recent commit first.
type BackendInterface interface {
	Path() string
	Initialize(ctx context.Context) error
	// CleanUp discards uncommitted changes and removes untracked files.
	CleanUp(ctx context.Context) error
	Add(ctx context.Context, relPath string) error
	// Commit records the staged content of relPath alone. It returns an empty
	// id when that content equals the last version.
	Commit(ctx context.Context, relPath, message string, date time.Time) (string, error)
	// Unstage resets the staged content of relPath to the last version.
	Unstage(ctx context.Context, relPath string) error
	// Show reads a file at a version in text mode.
	Show(ctx context.Context, id, relPath string) (string, error)
	// Restore overwrites the working copy of relPath with its content at revision.
	Restore(ctx context.Context, relPath, revision string) error
	SearchCommits(ctx context.Context, subject *regexp.Regexp) ([]models.Commit, error)
	// LatestCommit returns nil when no commit touched a path matching pattern.
	LatestCommit(ctx context.Context, pattern string) (*models.Commit, error)
	// CommitByID returns nil for unknown ids.
	CommitByID(ctx context.Context, id string) (*models.Commit, error)
	IsTracked(ctx context.Context, pattern string) (bool, error)
	Push(ctx context.Context) error
	// DestroyHistory erases every version and starts an empty history.
	DestroyHistory(ctx context.Context) error
}
