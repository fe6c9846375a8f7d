package repository_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"

	"github.com/shopstock/stock-backend/internal/stock/repository"
	"github.com/shopstock/stock-backend/pkg/testutil"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx, repository.Migrations, repository.Tables)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()

	suite.Cleanup(ctx)
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}
