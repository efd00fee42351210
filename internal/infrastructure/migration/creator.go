package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const versionLayout = "20060102150405"

var upTemplate = template.Must(template.New("up").Parse(`-- {{.Name}} (up)
-- {{.Timestamp}}{{if .Description}}
-- {{.Description}}{{end}}
{{if .TenantTable}}
CREATE TABLE IF NOT EXISTS {{.TenantTable}} (
    id          UUID PRIMARY KEY,
    tenant_id   UUID NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
    version     INTEGER NOT NULL DEFAULT 1,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_{{.TenantTable}}_tenant ON {{.TenantTable}}(tenant_id);

-- add "{{.TenantTable}}" to tenant.Tables so unscoped reads are rejected
{{else}}
{{end}}`))

var downTemplate = template.Must(template.New("down").Parse(`-- {{.Name}} (down)
-- {{.Timestamp}}
{{if .TenantTable}}
DROP TABLE IF EXISTS {{.TenantTable}};
{{else}}
{{end}}`))

// CreateOptions tunes the scaffold written by CreateMigration
type CreateOptions struct {
	Description string
	// TenantTable scaffolds a tenant-owned table with this name
	TenantTable string
}

// MigrationFile is a freshly created up/down pair
type MigrationFile struct {
	Version     string
	Name        string
	Description string
	TenantTable string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// MigrationEntry is one migration found on disk
type MigrationEntry struct {
	Version uint
	Name    string
	HasDown bool
}

// String returns the base file name of the migration
func (e MigrationEntry) String() string {
	return fmt.Sprintf("%d_%s", e.Version, e.Name)
}

// CreateMigration writes a new up/down pair into dir, versioned by the current UTC time
func CreateMigration(dir, name string, opts CreateOptions) (*MigrationFile, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if opts.TenantTable != "" && sanitizeName(opts.TenantTable) != opts.TenantTable {
		return nil, fmt.Errorf("invalid table name %q", opts.TenantTable)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	now := time.Now().UTC()
	version := now.Format(versionLayout)
	base := filepath.Join(dir, version+"_"+slug)

	mf := &MigrationFile{
		Version:     version,
		Name:        name,
		Description: opts.Description,
		TenantTable: opts.TenantTable,
		Timestamp:   now.Format(time.RFC3339),
		UpPath:      base + ".up.sql",
		DownPath:    base + ".down.sql",
	}

	if err := writeTemplate(mf.UpPath, upTemplate, mf); err != nil {
		return nil, err
	}
	if err := writeTemplate(mf.DownPath, downTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeTemplate(path string, tmpl *template.Template, data *MigrationFile) error {
	// O_EXCL so two creates within the same second never clobber each other
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	return nil
}

// sanitizeName lower-cases name and folds separators into single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the migrations in dir ordered by version.
// Files that do not follow the <version>_<name>.up.sql layout are ignored.
func ListMigrations(dir string) ([]MigrationEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}

	var out []MigrationEntry
	for name := range files {
		base, ok := strings.CutSuffix(name, ".up.sql")
		if !ok {
			continue
		}
		rawVersion, label, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(rawVersion, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, MigrationEntry{
			Version: uint(version),
			Name:    label,
			HasDown: files[base+".down.sql"],
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Pending returns the entries newer than the applied version
func Pending(entries []MigrationEntry, applied uint) []MigrationEntry {
	var out []MigrationEntry
	for _, e := range entries {
		if e.Version > applied {
			out = append(out, e)
		}
	}
	return out
}
