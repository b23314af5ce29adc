package location

import (
	"fmt"
	"os"
	"path/filepath"
)

// Disk lists entries under a local directory.
type Disk struct {
	Base string
}

// List returns the paths matching pattern relative to Base, using forward
// slashes. A missing base directory has no entries.
func (d Disk) List(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.Base, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		rel, err := filepath.Rel(d.Base, m)
		if err != nil {
			return nil, err
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return out, nil
}

// Path returns the absolute path of a location under Base.
func (d Disk) Path(loc string) string {
	return filepath.Join(d.Base, filepath.FromSlash(loc))
}

// MkdirAll creates the directory for loc.
func (d Disk) MkdirAll(loc string) (string, error) {
	p := d.Path(loc)
	if err := os.MkdirAll(p, 0o755); err != nil {
		return "", fmt.Errorf("create location %s: %w", loc, err)
	}
	return p, nil
}
