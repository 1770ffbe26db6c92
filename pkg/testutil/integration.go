package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// Environment variables read by live warehouse tests
const (
	EnvAccount   = "SNOWFLAKE_TEST_ACCOUNT"
	EnvUser      = "SNOWFLAKE_TEST_USER"
	EnvPassword  = "SNOWFLAKE_TEST_PASSWORD"
	EnvDatabase  = "SNOWFLAKE_TEST_DATABASE"
	EnvSchema    = "SNOWFLAKE_TEST_SCHEMA"
	EnvWarehouse = "SNOWFLAKE_TEST_WAREHOUSE"
)

// LiveCredentials holds the account used by live warehouse tests
type LiveCredentials struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
}

// IntegrationTestSuite provides base functionality for tests that need a
// live warehouse. The suite is skipped unless the account environment
// variables are set.
type IntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	cancel      context.CancelFunc
	Credentials LiveCredentials
	startTime   time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.Credentials = RequireLiveCredentials(s.T())
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	if s.cancel != nil {
		s.cancel()
	}
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// RequireLiveCredentials returns the live account or skips the test
func RequireLiveCredentials(t *testing.T) LiveCredentials {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	creds := LiveCredentials{
		Account:   os.Getenv(EnvAccount),
		User:      os.Getenv(EnvUser),
		Password:  os.Getenv(EnvPassword),
		Database:  os.Getenv(EnvDatabase),
		Schema:    os.Getenv(EnvSchema),
		Warehouse: os.Getenv(EnvWarehouse),
	}
	if creds.Account == "" || creds.User == "" || creds.Password == "" {
		t.Skipf("set %s, %s and %s to run against a live warehouse", EnvAccount, EnvUser, EnvPassword)
	}
	return creds
}
