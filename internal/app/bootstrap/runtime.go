package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/lawfirm-intake/internal/archive"
	"github.com/wolfman30/lawfirm-intake/internal/casesystem"
	appconfig "github.com/wolfman30/lawfirm-intake/internal/config"
	"github.com/wolfman30/lawfirm-intake/internal/intake"
	"github.com/wolfman30/lawfirm-intake/internal/leads"
	"github.com/wolfman30/lawfirm-intake/internal/notify"
	"github.com/wolfman30/lawfirm-intake/internal/observability/metrics"
	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Runtime holds the wired lead intake services.
type Runtime struct {
	Pipeline *intake.Pipeline
	Records  leads.Repository
	Metrics  *metrics.PipelineMetrics
	closers  []func()
}

// Close releases pools and clients in reverse construction order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// BuildRuntime wires the record store, case system client, notifier and
// pipeline from configuration.
func BuildRuntime(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, reg prometheus.Registerer, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{Metrics: metrics.NewPipelineMetrics(reg)}

	records, closeStore, err := BuildRecordStore(ctx, cfg, awsCfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Records = records
	rt.closers = append(rt.closers, closeStore)

	var names leads.NameSequencer
	if redisClient := BuildRedisClient(ctx, cfg, logger, true); redisClient != nil {
		names = leads.NewRedisNameSequencer(redisClient, records)
		rt.closers = append(rt.closers, func() { _ = redisClient.Close() })
		logger.Info("customer name numbering via redis")
	}

	cases, err := casesystem.New(casesystem.Config{
		BaseURL: cfg.CaseAPIBaseURL,
		APIKey:  cfg.CaseAPIKey,
		Timeout: cfg.CaseAPITimeout,
		Logger:  logger.WithComponent("casesystem").Logger,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("bootstrap: case system client: %w", err)
	}

	channel, err := BuildNotificationChannel(cfg, awsCfg, logger)
	if err != nil {
		rt.Close()
		return nil, err
	}

	checker := intake.NewDuplicateChecker(cases, cfg.CaseAPITimeout, logger.WithComponent("duplicates"), rt.Metrics)
	submitter := intake.NewRetryingSubmitter(cases, intake.SubmitterConfig{
		Delay:          cfg.CaseSubmitRetryDelay,
		AttemptTimeout: cfg.CaseAPITimeout,
	}, logger.WithComponent("submitter"), rt.Metrics)
	notifier := notify.NewService(channel, logger.WithComponent("notify"),
		notify.WithStaffDirectory(checker),
		notify.WithMetrics(rt.Metrics),
		notify.WithLocation(cfg.DisplayLocation()),
	)

	deps := intake.Deps{
		Records:    records,
		Names:      names,
		Duplicates: checker,
		Submitter:  submitter,
		Notifier:   notifier,
		Logger:     logger.WithComponent("pipeline"),
		Metrics:    rt.Metrics,
	}
	if bucket := strings.TrimSpace(cfg.MirrorBucket); bucket != "" {
		deps.Mirror = archive.NewStore(s3.NewFromConfig(awsCfg), bucket, logger.WithComponent("archive").Logger)
		logger.Info("record mirror enabled", "bucket", bucket)
	}

	rt.Pipeline, err = intake.NewPipeline(deps)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}
