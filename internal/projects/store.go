package projects

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultExtension is the file extension a directory entry needs to be listed.
const DefaultExtension = ".fountain"

var (
	// ErrMissingFilename is returned when a required filename is absent or
	// reduces to the empty string.
	ErrMissingFilename = errors.New("missing filename")

	// ErrNotFound is returned by Open when the resolved path does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrInvalidEncoding is returned by Open when the file is not valid UTF-8.
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
)

// OpenPolicy controls how Open resolves the requested filename.
type OpenPolicy string

const (
	// OpenBasename reduces the requested name to its base name, the same
	// reduction Save applies.
	OpenBasename OpenPolicy = "basename"

	// OpenRaw joins the requested name to the directory as given and echoes
	// it back unchanged, so "sub/a.fountain" opens a nested file. Open is then
	// asymmetric with Save. Names with directory components can reach files
	// outside the project directory.
	OpenRaw OpenPolicy = "raw"
)

// Options tunes a Store. The zero value is usable: default extension,
// basename open policy, plain (non-atomic) writes.
type Options struct {
	Extension    string
	OpenPolicy   OpenPolicy
	AtomicWrites bool
}

// Project is a project file and its full content.
type Project struct {
	Filename string
	Text     string
}

// Store reads and writes project files in a single directory.
type Store struct {
	dir    string
	ext    string
	policy OpenPolicy
	atomic bool

	locks sync.Map // base name -> *sync.Mutex, used when atomic is set
}

// New creates a Store rooted at dir. The directory is not touched until
// EnsureDir or one of the operations is called.
func New(dir string, opts Options) *Store {
	s := &Store{
		dir:    dir,
		ext:    opts.Extension,
		policy: opts.OpenPolicy,
		atomic: opts.AtomicWrites,
	}
	if s.ext == "" {
		s.ext = DefaultExtension
	}
	if s.policy == "" {
		s.policy = OpenBasename
	}
	return s
}

// Dir returns the project directory.
func (s *Store) Dir() string { return s.dir }

// Extension returns the extension used to filter listed files.
func (s *Store) Extension() string { return s.ext }

// EnsureDir creates the project directory and any missing parents.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("projects: create dir %q: %w", s.dir, err)
	}
	return nil
}

// List returns the names of the project files in the directory. Directories
// are skipped even when their name carries the extension. The order is the
// order the directory read yields and callers must not rely on it.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("projects: list %q: %w", s.dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), s.ext) {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Open reads the project named name. The returned Project carries the name
// as it was resolved under the store's open policy.
func (s *Store) Open(name string) (*Project, error) {
	if name == "" {
		return nil, ErrMissingFilename
	}

	var path string
	switch s.policy {
	case OpenRaw:
		path = joinRaw(s.dir, name)
	default:
		name = BaseName(name)
		if name == "" {
			return nil, ErrMissingFilename
		}
		path = filepath.Join(s.dir, name)
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("projects: stat %q: %w", name, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projects: read %q: %w", name, err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("projects: read %q: %w", name, ErrInvalidEncoding)
	}
	return &Project{Filename: name, Text: string(data)}, nil
}

// Save creates or fully overwrites the project file named by the base name of
// name and returns that base name. Concurrent saves to the same name are last
// write wins.
func (s *Store) Save(name, text string) (string, error) {
	base := BaseName(name)
	if base == "" {
		return "", ErrMissingFilename
	}
	path := filepath.Join(s.dir, base)

	if !s.atomic {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return "", fmt.Errorf("projects: write %q: %w", base, err)
		}
		slog.Debug("projects: saved", "file", base, "bytes", len(text))
		return base, nil
	}

	mu := s.lockFor(base)
	mu.Lock()
	defer mu.Unlock()

	if err := writeAtomic(s.dir, base, []byte(text)); err != nil {
		return "", fmt.Errorf("projects: write %q: %w", base, err)
	}
	slog.Debug("projects: saved", "file", base, "bytes", len(text), "atomic", true)
	return base, nil
}

// BaseName strips every directory component from name. A name ending in a
// separator reduces to the empty string.
func BaseName(name string) string {
	seps := "/"
	if filepath.Separator != '/' {
		seps += string(filepath.Separator)
	}
	return name[strings.LastIndexAny(name, seps)+1:]
}

func (s *Store) lockFor(base string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(base, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// joinRaw joins name to dir without any sanitization. An absolute name
// replaces dir entirely.
func joinRaw(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// writeAtomic writes data to a temporary file next to the target and renames
// it into place, so readers never observe a partially written project. The
// temporary name does not carry the project extension and is never listed.
func writeAtomic(dir, base string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, base))
}
