package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopstock/stock-backend/pkg/database"
	"github.com/shopstock/stock-backend/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL.
// Tests sharing a suite must not run in parallel; Reset wipes every table.
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger

	migrations []string
	tables     []string
}

// NewIntegrationSuite creates a new integration test suite and applies
// migrations. Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    if !testing.Short() {
//	        suite, err = testutil.NewIntegrationSuite(ctx, repository.Migrations, repository.Tables)
//	        ...
//	        defer testutil.TerminateContainer(ctx)
//	    }
//	    os.Exit(m.Run())
//	}
//
//	func TestSomething(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    suite.Reset(t, ctx)
//	    ...
//	}
func NewIntegrationSuite(ctx context.Context, migrations, tables []string) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New("test", "test")
	wrappedDB, err := database.NewWithDSN(container.DSN, log)
	if err != nil {
		return nil, err
	}

	s := &IntegrationSuite{
		Container:  container,
		RawDB:      db,
		DB:         wrappedDB,
		Fixtures:   NewFixtureFactory(),
		Logger:     log,
		migrations: migrations,
		tables:     tables,
	}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

func (s *IntegrationSuite) migrate(ctx context.Context) error {
	for i, stmt := range s.migrations {
		if _, err := s.RawDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Reset truncates every table and re-applies the migrations so seed rows
// are back in place.
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()

	if len(s.tables) > 0 {
		stmt := "TRUNCATE " + strings.Join(s.tables, ", ") + " RESTART IDENTITY CASCADE"
		if _, err := s.RawDB.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to truncate tables: %v", err)
		}
	}
	if err := s.migrate(ctx); err != nil {
		t.Fatalf("failed to re-apply migrations: %v", err)
	}
}

// Cleanup closes the suite's connections. The shared container is left
// running; see TerminateContainer.
func (s *IntegrationSuite) Cleanup(ctx context.Context) error {
	return s.DB.Close()
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB   *MockDB
	Fixtures *FixtureFactory
	t        *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB:   NewMockDB(t),
		Fixtures: NewFixtureFactory(),
		t:        t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}
