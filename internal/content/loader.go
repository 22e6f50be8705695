// Package content reads matched documents from the local filesystem.
package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/docquery/internal/domain"
)

// FileLoader reads the file a match points to.
//
// With an empty root, payload paths are used as stored (absolute or relative
// to the working directory). With a root, relative paths resolve under it and
// any path escaping it is refused.
type FileLoader struct {
	root string
}

// NewFileLoader creates a loader. root may be empty.
func NewFileLoader(root string) *FileLoader {
	if root != "" {
		root = filepath.Clean(root)
	}
	return &FileLoader{root: root}
}

// Load returns the full file contents as text. An empty file is unavailable:
// there is nothing to answer with. Every failure wraps domain.ErrContentUnavailable.
func (l *FileLoader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("load %s: %w: %w", path, domain.ErrContentUnavailable, err)
	}
	if path == "" {
		return "", fmt.Errorf("empty path: %w", domain.ErrContentUnavailable)
	}

	resolved, err := l.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrContentUnavailable, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("read %s: empty file: %w", resolved, domain.ErrContentUnavailable)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("read %s: not valid UTF-8: %w", resolved, domain.ErrContentUnavailable)
	}

	return string(data), nil
}

func (l *FileLoader) resolve(path string) (string, error) {
	if l.root == "" {
		return path, nil
	}

	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(l.root, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(l.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes content root: %w", path, domain.ErrContentUnavailable)
	}
	return p, nil
}
