package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/orderdesk/pkg/config"
)

// DefaultDir is the on-disk location of the SQL migrations, used by the
// create and validate commands.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source picks the migration files: dir on disk when set, else the embedded set.
func Source(dir string) fs.FS {
	if dir == "" {
		return Embedded()
	}
	return os.DirFS(dir)
}

// Dialect maps a configured DB driver to the goose dialect.
func Dialect(driver string) goose.Dialect {
	if driver == config.DriverSQLite {
		return goose.DialectSQLite3
	}
	return goose.DialectPostgres
}

// Runner applies migrations from one source to one database.
type Runner struct {
	provider *goose.Provider
}

// NewRunner binds db and the migration files.
func NewRunner(db *sql.DB, driver string, migrations fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if migrations == nil {
		return nil, errors.New("migration source is required")
	}
	provider, err := goose.NewProvider(Dialect(driver), db, migrations)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

// Up applies every pending migration and returns the versions applied.
func (r *Runner) Up(ctx context.Context) ([]int64, error) {
	results, err := r.provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}
	return appliedVersions(results), nil
}

// Down rolls back the latest applied migration.
func (r *Runner) Down(ctx context.Context) (int64, error) {
	result, err := r.provider.Down(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose down: %w", err)
	}
	if result == nil || result.Source == nil {
		return 0, nil
	}
	return result.Source.Version, nil
}

// Status lists each known migration and whether it is applied.
func (r *Runner) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose status: %w", err)
	}
	return statuses, nil
}

// To moves the schema up or down until target (YYYYMMDDHHMMSS) is current.
func (r *Runner) To(ctx context.Context, target string) error {
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil || len(target) != 14 {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", target)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current < version:
		_, err = r.provider.UpTo(ctx, version)
	case current > version:
		_, err = r.provider.DownTo(ctx, version)
	}
	if err != nil {
		return fmt.Errorf("goose to %d: %w", version, err)
	}
	return nil
}

func appliedVersions(results []*goose.MigrationResult) []int64 {
	versions := make([]int64, 0, len(results))
	for _, res := range results {
		if res != nil && res.Source != nil {
			versions = append(versions, res.Source.Version)
		}
	}
	return versions
}
