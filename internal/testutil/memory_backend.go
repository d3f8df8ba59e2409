package testutil

import (
	"archivist/internal/models"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

type memoryCommit struct {
	commit models.Commit
	tree   map[string][]byte
}

// MemoryBackend implements the recorder backend with an in-memory history and
// a real working tree under Dir. Show decodes content as UTF-8 text like a
// text-mode read would, so binary content does not survive it.
type MemoryBackend struct {
	mu          sync.Mutex
	Dir         string
	initialized bool
	commits     []memoryCommit
	index       map[string][]byte

	AddErr     error
	CommitErr  error
	PushErr    error
	RestoreErr func(relPath, revision string) error

	ShowCalls    []string
	RestoreCalls []string
	UnstageCalls []string
	Pushes       int
}

func NewMemoryBackend(dir string) *MemoryBackend {
	return &MemoryBackend{Dir: dir, index: make(map[string][]byte)}
}

func (m *MemoryBackend) Path() string {
	return m.Dir
}

func (m *MemoryBackend) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		return err
	}
	m.initialized = true
	return nil
}

func (m *MemoryBackend) CleanUp(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	head := m.headTree()
	m.index = maps.Clone(head)

	err := filepath.WalkDir(m.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(m.Dir, p)
		if err != nil {
			return err
		}
		if _, tracked := head[filepath.ToSlash(rel)]; !tracked {
			return os.Remove(p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for relPath, content := range head {
		if err := m.writeWorkingFile(relPath, content); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) Add(ctx context.Context, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	if m.AddErr != nil {
		return m.AddErr
	}
	content, err := os.ReadFile(filepath.Join(m.Dir, filepath.FromSlash(relPath)))
	if err != nil {
		return err
	}
	m.index[relPath] = content
	return nil
}

func (m *MemoryBackend) Commit(ctx context.Context, relPath, message string, date time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", err
	}
	if m.CommitErr != nil {
		return "", m.CommitErr
	}

	head := m.headTree()
	m.resetIndex(func(p string) bool { return p != relPath })
	staged, ok := m.index[relPath]
	if !ok {
		return "", nil
	}
	if current, ok := head[relPath]; ok && bytes.Equal(current, staged) {
		return "", nil
	}
	return m.commitTree(message, date), nil
}

func (m *MemoryBackend) Unstage(ctx context.Context, relPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UnstageCalls = append(m.UnstageCalls, relPath)
	m.resetIndex(func(p string) bool { return p == relPath })
	return nil
}

// Staged returns the staged content of relPath.
func (m *MemoryBackend) Staged(relPath string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.index[relPath]
	return content, ok
}

// AddForeignCommit records a commit that is not a document version, such as
// a README update.
func (m *MemoryBackend) AddForeignCommit(relPath string, content []byte, message string, date time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index[relPath] = content
	_ = m.writeWorkingFile(relPath, content)
	return m.commitTree(message, date)
}

func (m *MemoryBackend) Show(ctx context.Context, id, relPath string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShowCalls = append(m.ShowCalls, id+":"+relPath)

	c := m.find(id)
	if c == nil {
		return "", fmt.Errorf("unknown revision %s", id)
	}
	content, ok := c.tree[relPath]
	if !ok {
		return "", fmt.Errorf("path %s does not exist in %s", relPath, id)
	}
	return strings.ToValidUTF8(string(content), "\uFFFD"), nil
}

func (m *MemoryBackend) Restore(ctx context.Context, relPath, revision string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RestoreCalls = append(m.RestoreCalls, revision+":"+relPath)

	if m.RestoreErr != nil {
		if err := m.RestoreErr(relPath, revision); err != nil {
			return err
		}
	}

	var c *memoryCommit
	if revision == "HEAD" {
		if len(m.commits) > 0 {
			c = &m.commits[len(m.commits)-1]
		}
	} else {
		c = m.find(revision)
	}
	if c == nil {
		return fmt.Errorf("unknown revision %s", revision)
	}
	content, ok := c.tree[relPath]
	if !ok {
		return fmt.Errorf("path %s does not exist in %s", relPath, revision)
	}
	return m.writeWorkingFile(relPath, content)
}

func (m *MemoryBackend) SearchCommits(ctx context.Context, subject *regexp.Regexp) ([]models.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var commits []models.Commit
	for i := len(m.commits) - 1; i >= 0; i-- {
		if subject.MatchString(m.commits[i].commit.Subject()) {
			commits = append(commits, m.commits[i].commit)
		}
	}
	return commits, nil
}

func (m *MemoryBackend) LatestCommit(ctx context.Context, pattern string) (*models.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.commits) - 1; i >= 0; i-- {
		for _, f := range m.commits[i].commit.Files {
			if ok, _ := path.Match(pattern, f); ok {
				c := m.commits[i].commit
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (m *MemoryBackend) CommitByID(ctx context.Context, id string) (*models.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.find(id); c != nil {
		commit := c.commit
		return &commit, nil
	}
	return nil, nil
}

func (m *MemoryBackend) IsTracked(ctx context.Context, pattern string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for relPath := range m.headTree() {
		if ok, _ := path.Match(pattern, relPath); ok {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryBackend) Push(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PushErr != nil {
		return m.PushErr
	}
	m.Pushes++
	return nil
}

func (m *MemoryBackend) DestroyHistory(ctx context.Context) error {
	m.mu.Lock()
	m.commits = nil
	m.index = make(map[string][]byte)
	m.initialized = false
	err := os.RemoveAll(m.Dir)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Initialize(ctx)
}

// WorkingFile returns the current working copy of relPath.
func (m *MemoryBackend) WorkingFile(relPath string) ([]byte, error) {
	return os.ReadFile(filepath.Join(m.Dir, filepath.FromSlash(relPath)))
}

func (m *MemoryBackend) check() error {
	if !m.initialized {
		return errors.New("backend is not initialized")
	}
	return nil
}

func (m *MemoryBackend) headTree() map[string][]byte {
	if len(m.commits) == 0 {
		return map[string][]byte{}
	}
	return m.commits[len(m.commits)-1].tree
}

// resetIndex sets the selected index entries back to their HEAD content.
func (m *MemoryBackend) resetIndex(reset func(string) bool) {
	head := m.headTree()
	for p := range m.index {
		if !reset(p) {
			continue
		}
		if content, ok := head[p]; ok {
			m.index[p] = content
		} else {
			delete(m.index, p)
		}
	}
	for p, content := range head {
		if _, ok := m.index[p]; !ok && reset(p) {
			m.index[p] = content
		}
	}
}

func (m *MemoryBackend) find(id string) *memoryCommit {
	for i := range m.commits {
		if m.commits[i].commit.ID == id {
			return &m.commits[i]
		}
	}
	return nil
}

func (m *MemoryBackend) commitTree(message string, date time.Time) string {
	head := m.headTree()
	var files []string
	for relPath, content := range m.index {
		if current, ok := head[relPath]; !ok || !bytes.Equal(current, content) {
			files = append(files, relPath)
		}
	}
	slices.Sort(files)

	parent := ""
	if len(m.commits) > 0 {
		parent = m.commits[len(m.commits)-1].commit.ID
	}
	sum := sha1.Sum([]byte(fmt.Sprintf("%s\x00%s\x00%d\x00%v", parent, message, date.UnixNano(), files)))
	id := hex.EncodeToString(sum[:])

	m.commits = append(m.commits, memoryCommit{
		commit: models.Commit{ID: id, Message: message, Date: date, Files: files},
		tree:   maps.Clone(m.index),
	})
	return id
}

func (m *MemoryBackend) writeWorkingFile(relPath string, content []byte) error {
	target := filepath.Join(m.Dir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, content, 0644)
}
