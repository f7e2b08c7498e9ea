//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	pgtc "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-callback-board/internal/config"
	"gitlab.com/timkado/api/daisi-callback-board/internal/jetstream"
	"gitlab.com/timkado/api/daisi-callback-board/internal/storage"
	"gitlab.com/timkado/api/daisi-callback-board/pkg/logger"
)

const DefaultCompanyID = "defaultcompanyid"

// BaseIntegrationSuite starts Postgres and NATS once and connects the
// service's own repository and JetStream client to them.
type BaseIntegrationSuite struct {
	suite.Suite
	Postgres          testcontainers.Container
	PostgresDSN       string
	NATS              testcontainers.Container
	NATSURL           string
	CompanyID         string
	CompanySchemaName string

	Repo     *storage.PostgresRepo
	JSClient *jetstream.Client

	Ctx    context.Context
	cancel context.CancelFunc
}

// SetupSuite runs once before the tests in the suite are run.
func (s *BaseIntegrationSuite) SetupSuite() {
	s.Ctx, s.cancel = context.WithCancel(context.Background())
	logger.Log = zaptest.NewLogger(s.T()).Named("integration")

	startTime := time.Now()
	var err error

	s.CompanyID = os.Getenv("TEST_COMPANY_ID")
	if s.CompanyID == "" {
		s.CompanyID = DefaultCompanyID
		log.Println("TEST_COMPANY_ID not set, using default", zap.String("companyID", s.CompanyID))
	}
	s.CompanySchemaName = storage.SchemaName(s.CompanyID)

	s.Postgres, s.PostgresDSN, err = startPostgres(s.Ctx)
	s.Require().NoError(err, "failed to start postgres")
	log.Println("PostgreSQL container started.")

	s.NATS, s.NATSURL, err = startNATSContainer(s.Ctx)
	s.Require().NoError(err, "failed to start NATS")
	log.Println("NATS container started.")

	s.Repo, err = storage.NewPostgresRepo(s.PostgresDSN, true, s.CompanyID)
	s.Require().NoError(err, "failed to initialize repository")

	s.JSClient, err = jetstream.NewClient(s.NATSURL, "callback-board-integration")
	s.Require().NoError(err, "failed to connect JetStream client")

	log.Printf("BaseIntegrationSuite setup complete in %v", time.Since(startTime))
}

// TearDownSuite runs once after all tests in the suite have finished.
func (s *BaseIntegrationSuite) TearDownSuite() {
	log.Println("Tearing down BaseIntegrationSuite...")

	if s.JSClient != nil {
		s.JSClient.Close()
	}
	if s.Repo != nil {
		_ = s.Repo.Close(s.Ctx)
	}
	if s.NATS != nil {
		if err := s.NATS.Terminate(s.Ctx); err != nil {
			s.T().Logf("Error terminating NATS container: %v", err)
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Terminate(s.Ctx); err != nil {
			s.T().Logf("Error terminating PostgreSQL container: %v", err)
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// SetupTest truncates the board tables so every test starts clean.
func (s *BaseIntegrationSuite) SetupTest() {
	s.Require().NoError(truncateBoardTables(s.Ctx, s.PostgresDSN, s.CompanySchemaName))
}

// TestConfig returns a config pointing at the suite's containers with short delays.
func (s *BaseIntegrationSuite) TestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Company.ID = s.CompanyID
	cfg.NATS.URL = s.NATSURL
	cfg.NATS.ChangeSubject = "v1.callbacks.changed"
	cfg.NATS.DLQSubject = "v1.dlq"
	cfg.NATS.DLQStream = "dlq_stream"
	cfg.NATS.DLQWorkers = 2
	cfg.NATS.DLQBaseDelayMinutes = 1
	cfg.NATS.DLQMaxDelayMinutes = 1
	cfg.NATS.DLQMaxAgeDays = 1
	cfg.NATS.DLQMaxDeliver = 3
	cfg.NATS.DLQAckWait = 5 * time.Second
	cfg.NATS.DLQMaxAckPending = 100
	cfg.NATS.Wrapup = config.ConsumerNatsConfig{
		MaxAge:       1,
		Stream:       "wrapup_events_stream",
		Consumer:     "callback_board_wrapup_",
		QueueGroup:   "callback_board_wrapup_group_",
		SubjectList:  []string{"v1.calls.wrapup"},
		MaxDeliver:   3,
		NakBaseDelay: 100 * time.Millisecond,
		NakMaxDelay:  time.Second,
		AckWait:      5 * time.Second,
	}
	cfg.Board.Timezone = "UTC"
	return cfg
}

func startPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := pgtc.Run(ctx,
		"postgres:17-bookworm",
		pgtc.WithDatabase("callback_board"),
		pgtc.WithUsername("postgres"),
		pgtc.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start PostgreSQL container: %w", err)
	}

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return pgContainer, "", fmt.Errorf("failed to get PostgreSQL connection string: %w", err)
	}
	return pgContainer, dsn, nil
}

func startNATSContainer(ctx context.Context) (testcontainers.Container, string, error) {
	natsContainer, err := tcnats.Run(ctx,
		"nats:2.11-alpine",
		tcnats.WithArgument("name", "test-nats-server"),
		tcnats.WithArgument("store_dir", "/data"),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start NATS container: %w", err)
	}

	natsURL, err := natsContainer.ConnectionString(ctx)
	if err != nil {
		return natsContainer, "", fmt.Errorf("failed to get NATS connection string: %w", err)
	}
	return natsContainer, natsURL, nil
}

func truncateBoardTables(ctx context.Context, dsn, schemaName string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	ctxExec, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, table := range []string{"callbacks", "exhausted_events"} {
		qualified := pgx.Identifier{schemaName, table}.Sanitize()
		if _, err := db.ExecContext(ctxExec, "TRUNCATE TABLE "+qualified+" CASCADE"); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", qualified, err)
		}
	}
	return nil
}
