package walker

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// SourceFile is a discovered source file and its contents.
type SourceFile struct {
	Path    string
	RelPath string
	Size    int64
	Content []byte
}

// IgnoreFile holds extra gitignore-style patterns when present at the root.
const IgnoreFile = ".coderagignore"

// defaultIgnores apply in addition to IgnoreFile.
var defaultIgnores = []string{
	".git/",
	".hg/",
	".svn/",
	"__pycache__/",
}

// Options controls which files Scan returns.
type Options struct {
	// Extensions without the leading dot, e.g. "py".
	Extensions []string
	// StorageDir is the store directory name; any directory whose relative
	// path contains it as a component is skipped.
	StorageDir string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
	Logger      *slog.Logger
}

// Scan walks root and returns every matching file in walk order, contents
// included. Unreadable files are logged and left out; only a failure to
// resolve or walk root itself is returned.
func Scan(root string, opts Options) ([]SourceFile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", absRoot)
	}

	allowed := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.TrimPrefix(ext, ".")] = true
	}
	matcher := gitignore.NewMatcher(loadIgnorePatterns(absRoot, logger))

	var files []SourceFile
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			logger.Warn("skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if path == absRoot {
			return nil
		}

		rel, _ := filepath.Rel(absRoot, path)
		parts := strings.Split(filepath.ToSlash(rel), "/")

		if d.IsDir() {
			if inStorageDir(parts, opts.StorageDir) || matcher.Match(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !allowed[strings.TrimPrefix(filepath.Ext(path), ".")] {
			return nil
		}
		if matcher.Match(parts, false) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Warn("skipping file", "path", rel, "error", err)
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			logger.Debug("skipping large file", "path", rel, "size", fi.Size())
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read file", "path", rel, "error", err)
			return nil
		}

		files = append(files, SourceFile{
			Path:    path,
			RelPath: filepath.ToSlash(rel),
			Size:    fi.Size(),
			Content: content,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}
	return files, nil
}

func inStorageDir(parts []string, storageDir string) bool {
	if storageDir == "" {
		return false
	}
	for _, p := range parts {
		if p == storageDir {
			return true
		}
	}
	return false
}

// loadIgnorePatterns returns the defaults plus any patterns from IgnoreFile.
func loadIgnorePatterns(root string, logger *slog.Logger) []gitignore.Pattern {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnores))
	for _, p := range defaultIgnores {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot read ignore file", "error", err)
		}
		return patterns
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}
