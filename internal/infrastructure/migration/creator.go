package migration

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/spf13/afero"
)

var (
	upTemplate = template.Must(template.New("up").Parse(`-- Migration: {{.Name}}
-- Description: {{.Description}}

`))
	downTemplate = template.Must(template.New("down").Parse(`-- Migration: {{.Name}} (Rollback)

`))
)

// MigrationFile is a freshly created up/down pair.
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	UpPath      string
	DownPath    string
}

// Creator scaffolds new migration pairs in a directory.
type Creator struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewCreator returns a Creator writing into dir on fsys.
func NewCreator(fsys afero.Fs, dir string) *Creator {
	return &Creator{fs: fsys, dir: dir, now: time.Now}
}

// Create writes <version>_<name>.up.sql and .down.sql. The version is a
// UTC timestamp so pairs sort in creation order.
func (c *Creator) Create(name, description string) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := c.fs.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version := c.now().UTC().Format("20060102150405")
	base := path.Join(c.dir, version+"_"+slug)
	mf := &MigrationFile{
		Version:     version,
		Name:        slug,
		Description: description,
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := c.render(mf.UpPath, upTemplate, mf); err != nil {
		return nil, err
	}
	if err := c.render(mf.DownPath, downTemplate, mf); err != nil {
		_ = c.fs.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func (c *Creator) render(p string, tmpl *template.Template, mf *MigrationFile) error {
	if ok, _ := afero.Exists(c.fs, p); ok {
		return fmt.Errorf("migration %s already exists", p)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, mf); err != nil {
		return fmt.Errorf("failed to render %s: %w", p, err)
	}
	if err := afero.WriteFile(c.fs, p, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// List returns the base names of the up migrations, sorted. A missing
// directory yields an empty list.
func (c *Creator) List() ([]string, error) {
	entries, err := afero.ReadDir(c.fs, c.dir)
	if err != nil {
		if ok, _ := afero.DirExists(c.fs, c.dir); !ok {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok {
			names = append(names, base)
		}
	}
	sort.Strings(names)
	return names, nil
}

// sanitizeName lowercases name and collapses separators into single
// underscores, dropping everything else.
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}
