// Package integration runs the services against a real PostgreSQL started with
// testcontainers. The schema comes from the migrations directory.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fxoffice/backend/internal/domain/identity"
	"github.com/fxoffice/backend/internal/infrastructure/migration"
	"github.com/fxoffice/backend/internal/infrastructure/persistence"
	"github.com/fxoffice/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// one container per package run; each TestDB gets its own database inside it
var (
	container   *tcpostgres.PostgresContainer
	containerMu sync.Mutex
)

// TestDB is a migrated database owned by a single test
type TestDB struct {
	DB   *gorm.DB
	Name string
	t    *testing.T
}

// NewTestDB creates a fresh database, migrates it and installs the tenant guard.
// The database is dropped when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	admin := openSQL(t, adminDSN(t, ctx, "postgres"))
	name := "fx_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err := admin.ExecContext(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err, "Failed to create test database")

	sqlDB := openSQL(t, adminDSN(t, ctx, name))
	runMigrations(t, sqlDB)

	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB}), cfg)
	require.NoError(t, err, "Failed to open gorm")
	require.NoError(t, tenant.RegisterGuard(db), "Failed to install tenant guard")

	t.Cleanup(func() {
		_ = sqlDB.Close()
		if _, err := admin.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)"); err != nil {
			t.Logf("Warning: failed to drop %s: %v", name, err)
		}
		_ = admin.Close()
	})

	return &TestDB{DB: db, Name: name, t: t}
}

// adminDSN starts the shared container on first use and returns a DSN for dbname
func adminDSN(t *testing.T, ctx context.Context, dbname string) string {
	t.Helper()

	containerMu.Lock()
	defer containerMu.Unlock()

	if container == nil {
		c, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("fxoffice_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("admin123"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")
		container = c
	}

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("host=%s port=%s user=postgres password=admin123 dbname=%s sslmode=disable", host, port.Port(), dbname)
}

func openSQL(t *testing.T, dsn string) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	require.NoError(t, db.Ping(), "Failed to reach test database")
	return db
}

// runMigrations brings the schema up with the same migrator cmd/migrate uses.
// The migrator is not closed since that would close sqlDB.
func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	dir := findMigrationsPath()
	require.NotEmpty(t, dir, "Could not find migrations directory")

	m, err := migration.New(sqlDB, dir, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	status, err := m.Status()
	require.NoError(t, err)
	require.Empty(t, status.Pending, "migrations left pending")
}

// findMigrationsPath walks up from this file to the repository's migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	for dir := filepath.Dir(filename); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
	}
	return ""
}

// terminateContainer stops the shared container; called from TestMain
func terminateContainer() {
	containerMu.Lock()
	defer containerMu.Unlock()

	if container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = container.Terminate(ctx)
	container = nil
}

// CreateTestOrganization stores an active organization. Every tenant-owned
// table references organizations, so each test tenant needs one.
func (tdb *TestDB) CreateTestOrganization(name string) *identity.Organization {
	tdb.t.Helper()

	org, err := identity.NewOrganization(name, "")
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormOrganizationRepository(tdb.DB).Save(context.Background(), org))
	return org
}

// CreateTestUser stores a user mirrored from the identity provider
func (tdb *TestDB) CreateTestUser(externalID, email string) *identity.User {
	tdb.t.Helper()

	user, err := identity.NewUser(externalID, email)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormUserRepository(tdb.DB).Save(context.Background(), user))
	return user
}

// AddTestMember makes user a member of the organization with role
func (tdb *TestDB) AddTestMember(orgID uuid.UUID, user *identity.User, role identity.Role) {
	tdb.t.Helper()

	m, err := identity.NewMembership(orgID, user.ID, role)
	require.NoError(tdb.t, err)
	require.NoError(tdb.t, persistence.NewGormMembershipRepository(tdb.DB).Save(context.Background(), m))
}
