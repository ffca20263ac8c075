package engine

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"fetchall/internal/fetch"
)

const gitDirName = ".git"

// ListSubdirectories returns the names of the immediate child directories of
// root, in lexical order. Symlinks and regular files are skipped.
func ListSubdirectories(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read root %s: not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read root %s: %w", root, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// DirEntry.IsDir reports false for symlinks, even ones pointing at directories.
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Discover turns the directory tree under root into work items.
//
// At depth 1 every immediate child directory is an item, whether or not it
// holds a repository. Deeper searches stop at the first directory that
// contains a .git entry; plain directories above the depth limit are
// descended into, and directories at the limit become items.
func Discover(root string, depth int) ([]fetch.WorkItem, error) {
	if depth < 1 {
		return nil, fmt.Errorf("depth must be >= 1, got %d", depth)
	}

	var items []fetch.WorkItem
	if err := discoverInto(&items, root, "", 1, depth); err != nil {
		return nil, err
	}
	return items, nil
}

func discoverInto(items *[]fetch.WorkItem, dir, rel string, level, depth int) error {
	names, err := ListSubdirectories(dir)
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == gitDirName {
			continue
		}
		childPath := filepath.Join(dir, name)
		childRel := name
		if rel != "" {
			childRel = path.Join(rel, name)
		}

		if level >= depth || hasGitEntry(childPath) {
			*items = append(*items, fetch.WorkItem{Name: childRel, Path: childPath})
			continue
		}
		if err := discoverInto(items, childPath, childRel, level+1, depth); err != nil {
			return err
		}
	}
	return nil
}

// hasGitEntry reports whether dir holds a .git directory or a .git file
// (worktrees and submodules use a gitdir pointer file).
func hasGitEntry(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, gitDirName))
	return err == nil
}
