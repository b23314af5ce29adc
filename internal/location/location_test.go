package location

import (
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIO []string

func (f fakeIO) List(pattern string) ([]string, error) {
	var out []string
	for _, e := range f {
		if ok, _ := path.Match(pattern, e); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func fixed(format string, record map[string]string) *Formatter {
	f := New(format, record)
	f.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return f
}

func TestDefaultFormat(t *testing.T) {
	loc, err := fixed("", nil).Location(fakeIO{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04/05-06-07", loc)
}

func TestNameIsAppendedWhenNotInFormat(t *testing.T) {
	loc, err := fixed("{date}/{time}", nil).Location(fakeIO{}, map[string]string{"name": "rabi"})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04/05-06-07_rabi", loc)

	loc, err = fixed("{name}/{date}", nil).Location(fakeIO{}, map[string]string{"name": "rabi"})
	require.NoError(t, err)
	assert.Equal(t, "rabi/2026-03-04", loc)
}

func TestMissingKeysAreLeftInPlace(t *testing.T) {
	loc, err := fixed("{date}/{sample}/{operator}", map[string]string{"operator": "vk"}).Location(fakeIO{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04/{sample}/vk", loc)
}

func TestCounterFollowsExistingEntries(t *testing.T) {
	io := fakeIO{"data/#001_a", "data/#007_b", "data/#x_c", "other/#009"}
	loc, err := fixed("data/#{counter}_{name}", nil).Location(io, map[string]string{"name": "c"})
	require.NoError(t, err)
	assert.Equal(t, "data/#008_c", loc)

	loc, err = fixed("fresh/#{counter}", nil).Location(io, nil)
	require.NoError(t, err)
	assert.Equal(t, "fresh/#001", loc)
}

func TestOccupiedLocationGetsSuffix(t *testing.T) {
	io := fakeIO{"run", "run_2"}
	loc, err := fixed("run", nil).Location(io, nil)
	require.NoError(t, err)
	assert.Equal(t, "run_3", loc)
}

func TestDiskList(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "2026-03-04", "#001"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "2026-03-04", "#004"), 0o755))

	d := Disk{Base: base}
	got, err := d.List("2026-03-04/#*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2026-03-04/#001", "2026-03-04/#004"}, got)

	loc, err := fixed("{date}/#{counter}", nil).Location(d, nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04/#005", loc)

	missing := Disk{Base: filepath.Join(base, "nope")}
	got, err = missing.List("*")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGlobCharactersInLocationAreLiteral(t *testing.T) {
	for _, name := range []string{"run[1]", "run*", "run?"} {
		t.Run(name, func(t *testing.T) {
			base := t.TempDir()
			// Would match the unescaped pattern.
			require.NoError(t, os.MkdirAll(filepath.Join(base, "x_run1"), 0o755))
			require.NoError(t, os.MkdirAll(filepath.Join(base, "x_runs"), 0o755))
			d := Disk{Base: base}

			loc, err := fixed("x", nil).Location(d, map[string]string{"name": name})
			require.NoError(t, err)
			assert.Equal(t, "x_"+name, loc)

			require.NoError(t, os.MkdirAll(filepath.Join(base, "x_"+name), 0o755))
			loc, err = fixed("x", nil).Location(d, map[string]string{"name": name})
			require.NoError(t, err)
			assert.Equal(t, "x_"+name+"_2", loc)
		})
	}
}

func TestCounterPrefixWithGlobCharacters(t *testing.T) {
	io := fakeIO{"a[1]/#004", "a1/#009", "ab/#012"}
	loc, err := fixed("{name}/#{counter}", nil).Location(io, map[string]string{"name": "a[1]"})
	require.NoError(t, err)
	assert.Equal(t, "a[1]/#005", loc)

	// An unbalanced bracket must not turn into a malformed pattern.
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a[", "#002"), 0o755))
	loc, err = fixed("{name}/#{counter}", nil).Location(Disk{Base: base}, map[string]string{"name": "a["})
	require.NoError(t, err)
	assert.Equal(t, "a[/#003", loc)
}

func TestEscapeGlob(t *testing.T) {
	for _, s := range []string{"plain", "a[1]", "x*y", "q?", "2026-03-04/#001_[b]"} {
		ok, err := path.Match(escapeGlob(s), s)
		require.NoError(t, err)
		assert.True(t, ok, s)
	}
	ok, _ := path.Match(escapeGlob("run[1]"), "run1")
	assert.False(t, ok)
}
