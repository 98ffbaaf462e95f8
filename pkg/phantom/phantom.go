// Package phantom swaps working-tree source files with their
// last-committed blobs during reference analysis, then restores them:
// the resolver sees line numbers that match the previous snapshot
// while the generated docs describe the working-tree code.
package phantom

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/docweave/pkg/vcs"
)

const LatestVersionSuffix = "_latest_version"

// Manager is scoped: Restore must run on every exit path of a
// Materialize call.
type Manager struct {
	repo *vcs.Repo
	root string
	ext  string
}

func New(repo *vcs.Repo, root, ext string) *Manager {
	return &Manager{repo: repo, root: root, ext: ext}
}

// Result is returned by Materialize.
type Result struct {
	// ReflectionMap maps a working-tree path to the path holding its
	// phantom-swapped sibling.
	ReflectionMap map[string]string
	// JumpFiles are untracked source files with no committed
	// counterpart to reason about.
	JumpFiles []string
}

func (m *Manager) latestPath(path string) string {
	if strings.HasSuffix(path, m.ext) {
		return strings.TrimSuffix(path, m.ext) + LatestVersionSuffix + m.ext
	}
	return path + LatestVersionSuffix + m.ext
}

// Materialize finds modified-or-deleted tracked source files, renames
// the working-tree copy aside to <basename>_latest_version.<ext>, and
// writes the committed blob to the original path so the reference
// resolver sees stable, previously-committed line numbers.
func (m *Manager) Materialize() (*Result, error) {
	if err := m.rejectExistingPhantomInStagedAdds(); err != nil {
		return nil, err
	}

	result := &Result{ReflectionMap: make(map[string]string)}

	untracked, err := m.repo.UntrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("phantom: list untracked files: %w", err)
	}
	for _, f := range untracked {
		if strings.HasSuffix(f, m.ext) {
			result.JumpFiles = append(result.JumpFiles, f)
		}
	}

	unstaged, err := m.repo.UnstagedFiles()
	if err != nil {
		return nil, fmt.Errorf("phantom: list unstaged files: %w", err)
	}

	for _, f := range unstaged {
		if f.ChangeType != vcs.ChangeModified && f.ChangeType != vcs.ChangeDeleted {
			continue
		}
		if !strings.HasSuffix(f.Path, m.ext) {
			continue
		}

		committed, err := m.repo.BlobAt(f.Path, "HEAD")
		if err != nil {
			return nil, fmt.Errorf("phantom: read committed blob for %s: %w", f.Path, err)
		}

		latestPath := m.latestPath(f.Path)
		absOriginal := filepath.Join(m.root, f.Path)
		absLatest := filepath.Join(m.root, latestPath)

		if _, statErr := os.Stat(absOriginal); statErr == nil {
			if err := os.Rename(absOriginal, absLatest); err != nil {
				return nil, fmt.Errorf("phantom: stash working copy of %s: %w", f.Path, err)
			}
		} else {
			// Deleted-but-unstaged: create a zero-byte marker so
			// Restore knows not to recreate the original.
			if err := os.WriteFile(absLatest, nil, 0o644); err != nil {
				return nil, fmt.Errorf("phantom: create deletion marker for %s: %w", f.Path, err)
			}
		}

		if err := os.WriteFile(absOriginal, []byte(committed), 0o644); err != nil {
			return nil, fmt.Errorf("phantom: write committed blob for %s: %w", f.Path, err)
		}

		result.ReflectionMap[f.Path] = latestPath
	}

	return result, nil
}

// rejectExistingPhantomInStagedAdds is fatal: a phantom file already
// present in the staged-adds index indicates a prior run did not call
// Restore and requires operator intervention.
func (m *Manager) rejectExistingPhantomInStagedAdds() error {
	staged, err := m.repo.StagedFiles()
	if err != nil {
		return fmt.Errorf("phantom: list staged files: %w", err)
	}
	for _, f := range staged {
		if f.ChangeType == vcs.ChangeAdded && strings.Contains(f.Path, LatestVersionSuffix+m.ext) {
			return fmt.Errorf("phantom: a %s file is present in the staged-adds index (%s); run Restore manually before re-running", LatestVersionSuffix+m.ext, f.Path)
		}
	}
	return nil
}

// Restore walks the tree, finds every *_latest_version.<ext> file,
// removes the sibling holding the committed blob, and renames the
// latest-version file back into place. A zero-byte latest-version
// file indicates a deletion that must not be re-created and is simply
// removed.
func (m *Manager) Restore() error {
	return filepath.Walk(m.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, LatestVersionSuffix+m.ext) {
			return nil
		}

		originalName := strings.Replace(path, LatestVersionSuffix+m.ext, m.ext, 1)

		if info.Size() == 0 {
			if err := os.Remove(originalName); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("phantom: restore: remove committed copy of %s: %w", originalName, err)
			}
			return os.Remove(path)
		}

		if err := os.Remove(originalName); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("phantom: restore: remove committed copy of %s: %w", originalName, err)
		}
		return os.Rename(path, originalName)
	})
}
