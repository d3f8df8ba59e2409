// Package gitbackend implements the version-control backend of the recorder
// on top of go-git. No git binary is required.
package gitbackend

import (
	"archivist/internal/models"
	"archivist/internal/recorder/interfaces"
	"archivist/internal/structures"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

var (
	errNotInitialized = errors.New("repository is not initialized")
	commitIDRegexp    = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// Backend serializes every access to the repository: go-git object storage
// and its object cache are not safe for concurrent use, even by readers.
type Backend struct {
	path   string
	author structures.Author
	remote string
	repo   *git.Repository
	mu     sync.Mutex
}

func NewBackend(conf *structures.Config) interfaces.BackendInterface {
	return &Backend{
		path:   conf.Repository.Path,
		author: conf.Repository.Author,
		remote: conf.Repository.Remote,
	}
}

func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialize(ctx)
}

func (b *Backend) initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(b.path, 0755); err != nil {
		return err
	}

	repo, err := git.PlainOpen(b.path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(b.path, false)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", b.path, err)
	}

	b.repo = repo
	return nil
}

func (b *Backend) CleanUp(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wt, err := b.worktree(ctx)
	if err != nil {
		return err
	}

	_, err = b.repo.Head()
	switch {
	case err == nil:
		if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset}); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// nothing committed yet: staged files are dropped with the index
		if err := b.repo.Storer.SetIndex(&index.Index{Version: 2}); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
	default:
		return err
	}

	if err := wt.Clean(&git.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	return nil
}

func (b *Backend) Add(ctx context.Context, relPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wt, err := b.worktree(ctx)
	if err != nil {
		return err
	}
	_, err = wt.Add(relPath)
	return err
}

// Commit records relPath only. Other staged paths are reset to HEAD first,
// like `git commit <path>` would leave them out.
func (b *Backend) Commit(ctx context.Context, relPath, message string, date time.Time) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wt, err := b.worktree(ctx)
	if err != nil {
		return "", err
	}

	head, err := b.head(ctx)
	if err != nil {
		return "", err
	}
	idx, err := b.resetIndex(head, func(name string) bool { return name != relPath })
	if err != nil {
		return "", fmt.Errorf("reset index: %w", err)
	}

	changed, err := stagedChange(head, idx, relPath)
	if err != nil || !changed {
		return "", err
	}

	signature := &object.Signature{Name: b.author.Name, Email: b.author.Email, When: date}
	hash, err := wt.Commit(message, &git.CommitOptions{Author: signature, Committer: signature})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// Unstage resets the index entry of relPath to HEAD.
func (b *Backend) Unstage(ctx context.Context, relPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	head, err := b.head(ctx)
	if err != nil {
		return err
	}
	_, err = b.resetIndex(head, func(name string) bool { return name == relPath })
	return err
}

func (b *Backend) Show(ctx context.Context, id, relPath string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.file(ctx, plumbing.Revision(id), relPath)
	if err != nil {
		return "", err
	}
	return file.Contents()
}

func (b *Backend) Restore(ctx context.Context, relPath, revision string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	file, err := b.file(ctx, plumbing.Revision(revision), relPath)
	if err != nil {
		return err
	}

	reader, err := file.Reader()
	if err != nil {
		return err
	}
	defer reader.Close()

	target := filepath.Join(b.path, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (b *Backend) SearchCommits(ctx context.Context, subject *regexp.Regexp) ([]models.Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.log(ctx, nil, func(c *object.Commit) bool {
		return subject.MatchString(models.Commit{Message: c.Message}.Subject())
	}, 0)
}

func (b *Backend) LatestCommit(ctx context.Context, pattern string) (*models.Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	commits, err := b.log(ctx, matcher(pattern), func(*object.Commit) bool { return true }, 1)
	if err != nil || len(commits) == 0 {
		return nil, err
	}
	return &commits[0], nil
}

func (b *Backend) CommitByID(ctx context.Context, id string) (*models.Commit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	if !commitIDRegexp.MatchString(id) {
		return nil, nil
	}

	c, err := b.repo.CommitObject(plumbing.NewHash(id))
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	commit, err := toCommit(c)
	if err != nil {
		return nil, err
	}
	return &commit, nil
}

func (b *Backend) IsTracked(ctx context.Context, pattern string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	head, err := b.head(ctx)
	if err != nil || head == nil {
		return false, err
	}

	tree, err := head.Tree()
	if err != nil {
		return false, err
	}

	match := matcher(pattern)
	found := false
	err = tree.Files().ForEach(func(f *object.File) error {
		if match(f.Name) {
			found = true
			return storer.ErrStop
		}
		return nil
	})
	return found, err
}

func (b *Backend) Push(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ready(ctx); err != nil {
		return err
	}
	err := b.repo.PushContext(ctx, &git.PushOptions{RemoteName: b.remote})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (b *Backend) DestroyHistory(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(b.path); err != nil {
		return err
	}
	b.repo = nil
	return b.initialize(ctx)
}

func (b *Backend) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.repo == nil {
		return errNotInitialized
	}
	return nil
}

func (b *Backend) worktree(ctx context.Context) (*git.Worktree, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	return b.repo.Worktree()
}

// head returns nil when nothing has been committed yet.
func (b *Backend) head(ctx context.Context) (*object.Commit, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	ref, err := b.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b.repo.CommitObject(ref.Hash())
}

// resetIndex sets the index entries selected by reset back to their state in
// head, dropping the ones head does not have. A nil head is an empty tree.
func (b *Backend) resetIndex(head *object.Commit, reset func(name string) bool) (*index.Index, error) {
	idx, err := b.repo.Storer.Index()
	if err != nil {
		return nil, err
	}

	headFiles := make(map[string]*object.File)
	if head != nil {
		tree, err := head.Tree()
		if err != nil {
			return nil, err
		}
		err = tree.Files().ForEach(func(f *object.File) error {
			if reset(f.Name) {
				headFiles[f.Name] = f
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	entries := make([]*index.Entry, 0, len(idx.Entries))
	changed := false
	for _, e := range idx.Entries {
		if !reset(e.Name) {
			entries = append(entries, e)
			continue
		}
		f, ok := headFiles[e.Name]
		if !ok {
			changed = true
			continue
		}
		delete(headFiles, e.Name)
		if e.Hash != f.Hash || e.Mode != f.Mode {
			e.Hash, e.Mode = f.Hash, f.Mode
			changed = true
		}
		entries = append(entries, e)
	}
	// staged deletions
	for _, f := range headFiles {
		entries = append(entries, &index.Entry{Name: f.Name, Hash: f.Hash, Mode: f.Mode})
		changed = true
	}

	if !changed {
		return idx, nil
	}
	slices.SortFunc(entries, func(x, y *index.Entry) int { return strings.Compare(x.Name, y.Name) })
	idx.Entries = entries
	return idx, b.repo.Storer.SetIndex(idx)
}

// stagedChange reports whether the index content of relPath differs from head.
func stagedChange(head *object.Commit, idx *index.Index, relPath string) (bool, error) {
	entry, err := idx.Entry(relPath)
	if errors.Is(err, index.ErrEntryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if head == nil {
		return true, nil
	}

	f, err := head.File(relPath)
	if errors.Is(err, object.ErrFileNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return f.Hash != entry.Hash || f.Mode != entry.Mode, nil
}

func (b *Backend) file(ctx context.Context, revision plumbing.Revision, relPath string) (*object.File, error) {
	if err := b.ready(ctx); err != nil {
		return nil, err
	}
	hash, err := b.repo.ResolveRevision(revision)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", revision, err)
	}
	c, err := b.repo.CommitObject(*hash)
	if err != nil {
		return nil, err
	}
	return c.File(relPath)
}

// log walks the history from HEAD, most recent first. A limit of 0 means no
// limit.
func (b *Backend) log(ctx context.Context, pathFilter func(string) bool, keep func(*object.Commit) bool, limit int) ([]models.Commit, error) {
	head, err := b.head(ctx)
	if err != nil || head == nil {
		return nil, err
	}

	commitIter, err := b.repo.Log(&git.LogOptions{From: head.Hash, PathFilter: pathFilter})
	if err != nil {
		return nil, err
	}
	defer commitIter.Close()

	var commits []models.Commit
	err = commitIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !keep(c) {
			return nil
		}
		commit, err := toCommit(c)
		if err != nil {
			return err
		}
		commits = append(commits, commit)
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	return commits, err
}

func toCommit(c *object.Commit) (models.Commit, error) {
	files, err := changedFiles(c)
	if err != nil {
		return models.Commit{}, fmt.Errorf("changes of %s: %w", c.Hash, err)
	}
	return models.Commit{
		ID:      c.Hash.String(),
		Message: c.Message,
		Date:    c.Author.When,
		Files:   files,
	}, nil
}

// changedFiles compares the commit tree with its first parent, or with an
// empty tree for the root commit.
func changedFiles(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}

	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return nil, err
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}

	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}
		files = append(files, name)
	}
	return files, nil
}

func matcher(pattern string) func(string) bool {
	return func(name string) bool {
		ok, _ := path.Match(pattern, name)
		return ok
	}
}
