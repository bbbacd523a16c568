package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/lawfirm-intake/internal/config"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// BuildRecordStore selects the Record Store backend named by RECORD_STORE.
// The returned closer is never nil.
func BuildRecordStore(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (leads.Repository, func(), error) {
	noop := func() {}
	if logger == nil {
		logger = logging.Default()
	}

	switch backend := strings.ToLower(strings.TrimSpace(cfg.RecordStore)); backend {
	case "", "memory":
		logger.Warn("using in-memory record store; records are lost on restart")
		return leads.NewInMemoryRepository(), noop, nil

	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, noop, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres record store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("using postgres record store")
		return leads.NewPostgresRepository(pool), pool.Close, nil

	case "dynamodb":
		table := strings.TrimSpace(cfg.DynamoRecordsTable)
		if table == "" {
			return nil, noop, fmt.Errorf("bootstrap: DYNAMODB_RECORDS_TABLE is required for the dynamodb record store")
		}
		logger.Info("using dynamodb record store", "table", table)
		return leads.NewDynamoRepository(dynamodb.NewFromConfig(awsCfg), table), noop, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown record store %q", backend)
	}
}
