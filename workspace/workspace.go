// Package workspace confines all file I/O to a single root directory. Every
// path handed to the model or received from it is resolved through the
// sandbox check before it touches the filesystem.
package workspace

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/m4xw311/drover/errors"
)

// Workspace is a sandbox-checked accessor over one root directory.
type Workspace struct {
	root   string
	ignore []string
}

// defaultIgnore excludes dependency trees, build output and VCS metadata
// from FindFiles and SearchInFiles. Callers can extend it per call.
var defaultIgnore = []string{
	".git/**", ".svn/**", ".hg/**",
	"node_modules/**", "dist/**", "build/**", "target/**",
	".drover/**",
}

// New creates a workspace rooted at the given directory. The root is made
// absolute and cleaned once; all later checks compare against it.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "could not resolve workspace root '%s'", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "workspace root '%s' is not accessible", abs)
	}
	if !info.IsDir() {
		return nil, errors.New("workspace root '%s' is not a directory", abs)
	}
	return &Workspace{root: abs, ignore: defaultIgnore}, nil
}

// Root returns the absolute workspace root.
func (w *Workspace) Root() string { return w.root }

// Resolve turns a workspace-relative path into an absolute one, rejecting
// anything that escapes the root. Both `..` traversal and absolute-path
// override attempts fail with ErrAccessDenied.
func (w *Workspace) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", errors.NewKind(errors.ErrAccessDenied, "absolute path '%s' is outside the workspace", rel)
	}
	abs := filepath.Join(w.root, rel)
	if abs != w.root && !strings.HasPrefix(abs, w.root+string(filepath.Separator)) {
		return "", errors.NewKind(errors.ErrAccessDenied, "path '%s' escapes the workspace", rel)
	}
	return abs, nil
}

// Read returns the file's content as text.
func (w *Workspace) Read(path string) (string, error) {
	abs, err := w.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.NewKind(errors.ErrNotFound, "file '%s' does not exist", path)
		}
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(data), nil
}

// Write creates or overwrites a file, creating missing parent directories.
// No backup is taken; callers wanting one use Backup first.
func (w *Workspace) Write(path, content string) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return errors.Wrapf(err, "failed to create parent directories for '%s'", path)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return errors.Wrapf(err, "failed to write file '%s'", path)
	}
	return nil
}

// Delete removes a file.
func (w *Workspace) Delete(path string) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return errors.NewKind(errors.ErrNotFound, "file '%s' does not exist", path)
		}
		return errors.Wrapf(err, "failed to delete file '%s'", path)
	}
	return nil
}

// Exists probes a path. Any failure, not just not-found, yields false;
// callers must not use this to distinguish failure causes.
func (w *Workspace) Exists(path string) bool {
	abs, err := w.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Backup copies a single file to path+".bak" and returns the backup's
// relative path.
func (w *Workspace) Backup(path string) (string, error) {
	content, err := w.Read(path)
	if err != nil {
		return "", err
	}
	bak := path + ".bak"
	if err := w.Write(bak, content); err != nil {
		return "", err
	}
	return bak, nil
}

// Entry describes one directory listing result.
type Entry struct {
	Name        string
	Path        string
	Extension   string
	Size        int64
	IsDirectory bool
}

// List returns the entries of a directory. Entries that cannot be stat'ed
// are skipped; partial results win over total failure.
func (w *Workspace) List(dir string) ([]Entry, error) {
	abs, err := w.Resolve(dir)
	if err != nil {
		return nil, err
	}
	dirents, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewKind(errors.ErrNotFound, "directory '%s' does not exist", dir)
		}
		return nil, errors.Wrapf(err, "failed to list directory '%s'", dir)
	}
	var entries []Entry
	for _, de := range dirents {
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:        de.Name(),
			Path:        filepath.Join(dir, de.Name()),
			Extension:   filepath.Ext(de.Name()),
			Size:        info.Size(),
			IsDirectory: de.IsDir(),
		})
	}
	return entries, nil
}

// FindFiles walks the workspace and returns relative paths of files whose
// slash-separated path matches the doublestar pattern. The default ignore
// set applies in addition to any extra patterns.
func (w *Workspace) FindFiles(pattern string, extraIgnore []string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.New("invalid glob pattern '%s'", pattern)
	}
	ignore := append(append([]string(nil), w.ignore...), extraIgnore...)

	var found []string
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil || rel == "." {
			return nil
		}
		slashRel := filepath.ToSlash(rel)
		if ignored(slashRel, d.IsDir(), ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, slashRel); ok {
			found = append(found, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk workspace")
	}
	return found, nil
}

func ignored(slashRel string, isDir bool, patterns []string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, slashRel); ok {
			return true
		}
		// A directory matches "dir/**" patterns by its own prefix too, so
		// the walk can prune the whole subtree.
		if isDir && strings.HasSuffix(pat, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(pat, "/**"), slashRel); ok {
				return true
			}
		}
	}
	return false
}

// Match is one occurrence of the search text inside a file. Line and Column
// are 1-based.
type Match struct {
	Line    int
	Column  int
	Content string
}

// FileMatches groups all matches found in one file.
type FileMatches struct {
	Path    string
	Matches []Match
}

// SearchInFiles scans files matching the glob pattern for the literal text.
// The text is escaped into a safe pattern; files that fail to read are
// skipped rather than reported.
func (w *Workspace) SearchInFiles(pattern, text string, caseSensitive bool) ([]FileMatches, error) {
	paths, err := w.FindFiles(pattern, nil)
	if err != nil {
		return nil, err
	}

	expr := regexp.QuoteMeta(text)
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build search pattern")
	}

	var results []FileMatches
	for _, path := range paths {
		content, err := w.Read(path)
		if err != nil {
			continue
		}
		var matches []Match
		for i, line := range strings.Split(content, "\n") {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				matches = append(matches, Match{
					Line:    i + 1,
					Column:  loc[0] + 1,
					Content: strings.TrimRight(line, "\r"),
				})
			}
		}
		if len(matches) > 0 {
			results = append(results, FileMatches{Path: path, Matches: matches})
		}
	}
	return results, nil
}
