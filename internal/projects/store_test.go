package projects

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	st := New(filepath.Join(t.TempDir(), "projects"), opts)
	require.NoError(t, st.EnsureDir())
	return st
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNew_Defaults(t *testing.T) {
	st := New("somewhere", Options{})
	assert.Equal(t, DefaultExtension, st.Extension())
	assert.Equal(t, OpenBasename, st.policy)
	assert.False(t, st.atomic)
	assert.Equal(t, "somewhere", st.Dir())
}

func TestEnsureDir_CreatesNested(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "projects")
	st := New(dir, Options{})
	require.NoError(t, st.EnsureDir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, st.EnsureDir())
}

func TestList_Empty(t *testing.T) {
	st := newTestStore(t, Options{})
	names, err := st.List()
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestList_FiltersByExtension(t *testing.T) {
	st := newTestStore(t, Options{})
	writeFile(t, st.Dir(), "a.fountain", "A")
	writeFile(t, st.Dir(), "b.fountain", "B")
	writeFile(t, st.Dir(), "notes.txt", "x")
	writeFile(t, st.Dir(), "c.fountain.bak", "x")
	require.NoError(t, os.Mkdir(filepath.Join(st.Dir(), "dir.fountain"), 0o755))

	names, err := st.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.fountain", "b.fountain"}, names)
}

func TestList_CustomExtension(t *testing.T) {
	st := newTestStore(t, Options{Extension: ".txt"})
	writeFile(t, st.Dir(), "a.fountain", "A")
	writeFile(t, st.Dir(), "notes.txt", "x")

	names, err := st.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, names)
}

func TestList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "absent"), Options{})
	_, err := st.List()
	assert.Error(t, err)
}

func TestOpen_MissingFilename(t *testing.T) {
	st := newTestStore(t, Options{})
	_, err := st.Open("")
	assert.ErrorIs(t, err, ErrMissingFilename)
}

func TestOpen_NotFound(t *testing.T) {
	st := newTestStore(t, Options{})
	_, err := st.Open("nope.fountain")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_ReturnsContent(t *testing.T) {
	st := newTestStore(t, Options{})
	writeFile(t, st.Dir(), "demo.fountain", "INT. ROOM\n")

	p, err := st.Open("demo.fountain")
	require.NoError(t, err)
	assert.Equal(t, "demo.fountain", p.Filename)
	assert.Equal(t, "INT. ROOM\n", p.Text)
}

func TestOpen_InvalidUTF8(t *testing.T) {
	st := newTestStore(t, Options{})
	writeFile(t, st.Dir(), "bad.fountain", "\xff\xfe")

	_, err := st.Open("bad.fountain")
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestOpen_Directory(t *testing.T) {
	st := newTestStore(t, Options{})
	require.NoError(t, os.Mkdir(filepath.Join(st.Dir(), "dir.fountain"), 0o755))

	_, err := st.Open("dir.fountain")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrMissingFilename)
}

func TestOpen_BasenamePolicy_StripsDirectories(t *testing.T) {
	st := newTestStore(t, Options{OpenPolicy: OpenBasename})
	writeFile(t, st.Dir(), "demo.fountain", "text")
	// A file one level up must not be reachable.
	writeFile(t, filepath.Dir(st.Dir()), "secret.fountain", "secret")

	p, err := st.Open("nested/dir/demo.fountain")
	require.NoError(t, err)
	assert.Equal(t, "demo.fountain", p.Filename)
	assert.Equal(t, "text", p.Text)

	_, err = st.Open("../secret.fountain")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = st.Open("trailing/")
	assert.ErrorIs(t, err, ErrMissingFilename)
}

func TestOpen_RawPolicy_FollowsPath(t *testing.T) {
	st := newTestStore(t, Options{OpenPolicy: OpenRaw})
	writeFile(t, filepath.Dir(st.Dir()), "secret.fountain", "secret")

	p, err := st.Open("../secret.fountain")
	require.NoError(t, err)
	assert.Equal(t, "../secret.fountain", p.Filename)
	assert.Equal(t, "secret", p.Text)

	abs := filepath.Join(filepath.Dir(st.Dir()), "secret.fountain")
	p, err = st.Open(abs)
	require.NoError(t, err)
	assert.Equal(t, "secret", p.Text)
}

func TestSave_MissingFilename(t *testing.T) {
	st := newTestStore(t, Options{})
	for _, name := range []string{"", "dir/", "a/b/"} {
		_, err := st.Save(name, "x")
		assert.ErrorIs(t, err, ErrMissingFilename, "name %q", name)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			st := newTestStore(t, Options{AtomicWrites: atomic})
			text := "Title: Demo\n\nINT. ROOM - DAY\n\nÉmilie waits. 🎬\n"

			base, err := st.Save("demo.fountain", text)
			require.NoError(t, err)
			assert.Equal(t, "demo.fountain", base)

			p, err := st.Open("demo.fountain")
			require.NoError(t, err)
			assert.Equal(t, text, p.Text)

			info, err := os.Stat(filepath.Join(st.Dir(), "demo.fountain"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
		})
	}
}

func TestSave_EmptyText(t *testing.T) {
	st := newTestStore(t, Options{})
	_, err := st.Save("empty.fountain", "")
	require.NoError(t, err)

	p, err := st.Open("empty.fountain")
	require.NoError(t, err)
	assert.Equal(t, "", p.Text)
}

func TestSave_Overwrites(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		t.Run(fmt.Sprintf("atomic=%v", atomic), func(t *testing.T) {
			st := newTestStore(t, Options{AtomicWrites: atomic})
			_, err := st.Save("demo.fountain", "a much longer first draft")
			require.NoError(t, err)
			_, err = st.Save("demo.fountain", "short")
			require.NoError(t, err)

			p, err := st.Open("demo.fountain")
			require.NoError(t, err)
			assert.Equal(t, "short", p.Text)
		})
	}
}

func TestSave_StripsDirectories(t *testing.T) {
	st := newTestStore(t, Options{OpenPolicy: OpenRaw})

	base, err := st.Save("../../etc/evil.fountain", "x")
	require.NoError(t, err)
	assert.Equal(t, "evil.fountain", base)

	_, err = os.Stat(filepath.Join(st.Dir(), "evil.fountain"))
	require.NoError(t, err)

	// Even under the raw policy the reduced name is what opens the file.
	p, err := st.Open("evil.fountain")
	require.NoError(t, err)
	assert.Equal(t, "x", p.Text)
}

func TestSave_AtomicLeavesNoTempFiles(t *testing.T) {
	st := newTestStore(t, Options{AtomicWrites: true})
	for i := 0; i < 5; i++ {
		_, err := st.Save("demo.fountain", strings.Repeat("x", i))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(st.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "demo.fountain", entries[0].Name())
}

func TestSave_ConcurrentSameName(t *testing.T) {
	st := newTestStore(t, Options{AtomicWrites: true})

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = strings.Repeat(string(rune('a'+i)), 1000+i)
	}

	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := st.Save("race.fountain", text)
			assert.NoError(t, err)
		}(text)
	}
	wg.Wait()

	p, err := st.Open("race.fountain")
	require.NoError(t, err)
	// Last write wins: the content must be exactly one of the writes, never a mix.
	assert.Contains(t, texts, p.Text)
}

func TestSave_ListedAfterSave(t *testing.T) {
	st := newTestStore(t, Options{})
	_, err := st.Save("one.fountain", "1")
	require.NoError(t, err)
	_, err = st.Save("two.fountain", "2")
	require.NoError(t, err)
	_, err = st.Save("notes.md", "3")
	require.NoError(t, err)

	names, err := st.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.fountain", "two.fountain"}, names)
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"demo.fountain":           "demo.fountain",
		"a/b/demo.fountain":       "demo.fountain",
		"/abs/demo.fountain":      "demo.fountain",
		"../../demo.fountain":     "demo.fountain",
		"dir/":                    "",
		"":                        "",
		"..":                      "..",
		"with space.fountain":     "with space.fountain",
		"nested//double.fountain": "double.fountain",
	}
	for in, want := range cases {
		assert.Equal(t, want, BaseName(in), "BaseName(%q)", in)
	}
}
