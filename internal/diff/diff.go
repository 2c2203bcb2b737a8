// Package diff summarises the changes of a local commit range so an analysis
// can be shown next to what actually changed.
package diff

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// Status is how a file changed in the range.
type Status int

const (
	Modified Status = iota
	Added
	Deleted
	Renamed
)

func (s Status) String() string {
	switch s {
	case Added:
		return "added"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return "modified"
	}
}

// FileChange is the line count summary of one file.
type FileChange struct {
	OldPath string
	NewPath string
	Status  Status
	Binary  bool
	Added   int
	Deleted int
}

// Path returns the display path of the change.
func (f FileChange) Path() string {
	switch f.Status {
	case Renamed:
		return fmt.Sprintf("%s -> %s", f.OldPath, f.NewPath)
	case Deleted:
		return f.OldPath
	}
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Changes is the summary of a commit range.
type Changes struct {
	Range string
	Files []FileChange
}

// Totals returns the file count and the summed line counts.
func (c *Changes) Totals() (files, added, deleted int) {
	files = len(c.Files)
	for _, f := range c.Files {
		added += f.Added
		deleted += f.Deleted
	}
	return
}

// Empty reports whether the range changed nothing.
func (c *Changes) Empty() bool {
	return c == nil || len(c.Files) == 0
}

// Parse summarises a unified diff. Files are ordered by total changed lines,
// largest first, then by path.
func Parse(raw string) (*Changes, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	c := &Changes{Files: make([]FileChange, 0, len(parsed))}
	for _, f := range parsed {
		fc := FileChange{
			OldPath: f.OldName,
			NewPath: f.NewName,
			Binary:  f.IsBinary,
		}
		switch {
		case f.IsNew:
			fc.Status = Added
		case f.IsDelete:
			fc.Status = Deleted
		case f.IsRename:
			fc.Status = Renamed
		}
		for _, frag := range f.TextFragments {
			fc.Added += int(frag.LinesAdded)
			fc.Deleted += int(frag.LinesDeleted)
		}
		c.Files = append(c.Files, fc)
	}

	sort.SliceStable(c.Files, func(i, j int) bool {
		a, b := c.Files[i], c.Files[j]
		if a.Added+a.Deleted != b.Added+b.Deleted {
			return a.Added+a.Deleted > b.Added+b.Deleted
		}
		return a.Path() < b.Path()
	})
	return c, nil
}

// Range runs `git diff` for commitRange (e.g. "main...HEAD") in repoDir and
// summarises it.
func Range(ctx context.Context, repoDir, commitRange string) (*Changes, error) {
	raw, err := gitDiff(ctx, repoDir, "--no-color", "-U0", commitRange)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	c.Range = commitRange
	return c, nil
}

func gitDiff(ctx context.Context, repoDir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"diff"}, args...)...)
	cmd.Dir = repoDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("git diff: %w: %s", err, msg)
		}
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}
