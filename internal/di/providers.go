package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"CrossRisk/internal/domain/models"
	"CrossRisk/internal/domain/repository"
	domsvc "CrossRisk/internal/domain/service"
	"CrossRisk/internal/handler/api"
	internalrepo "CrossRisk/internal/repository"
	icache "CrossRisk/internal/service/cache"
	"CrossRisk/internal/service/fred"
	svcmetrics "CrossRisk/internal/service/metrics"
	"CrossRisk/internal/service/yahoo"
	"CrossRisk/internal/usecase"
	pkgcache "CrossRisk/pkg/cache"
	pkgch "CrossRisk/pkg/clickhouse"
	"CrossRisk/pkg/config"
	pkgkafka "CrossRisk/pkg/kafka"
	applogger "CrossRisk/pkg/logger"
	"CrossRisk/pkg/metrics"
	"CrossRisk/pkg/server"
)

const defaultSnapshotTable = "risk_snapshots"

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideCatalog builds the instrument catalog from config, falling back to
// the built-in cross-asset set when none is configured.
func ProvideCatalog(cfg *config.Config) *models.InstrumentCatalog {
	if len(cfg.Catalog.Market) == 0 && len(cfg.Catalog.Macro) == 0 {
		return models.DefaultCatalog()
	}
	return &models.InstrumentCatalog{
		Market:     cfg.Catalog.Market,
		Macro:      cfg.Catalog.Macro,
		RiskAssets: cfg.Catalog.RiskAssets,
		Reference:  cfg.Catalog.Reference,
	}
}

// ProvideMarketSource creates the market data source.
func ProvideMarketSource(cfg *config.Config) repository.MarketDataSource {
	return yahoo.New(cfg.MarketData.BaseURL, cfg.MarketData.UserAgent, cfg.MarketData.Timeout)
}

// ProvideMacroCache creates the cache backing macro series fetches: layered
// memory+Redis when Redis is configured, in-memory only otherwise.
func ProvideMacroCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}

	host := cfg.Cache.Redis.Addr
	port := 6379
	if h, p, err := net.SplitHostPort(cfg.Cache.Redis.Addr); err == nil {
		host = h
		if n, perr := strconv.Atoi(p); perr == nil {
			port = n
		}
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideMacroSource creates the macro series source wrapped with caching.
func ProvideMacroSource(cfg *config.Config, cache pkgcache.Service, logger *applogger.Logger) repository.MacroSeriesSource {
	src := fred.New(cfg.Macro.BaseURL, cfg.Macro.APIKey, cfg.Macro.Timeout, cfg.Macro.RequestsPerSec)
	return fred.NewCachedSource(src, cache, time.Hour, logger)
}

// ProvideMergePipeline creates the merge pipeline use case.
func ProvideMergePipeline(
	market repository.MarketDataSource,
	macro repository.MacroSeriesSource,
	m repository.Metrics,
	logger *applogger.Logger,
) domsvc.MergePipeline {
	return usecase.NewMergePipeline(market, macro, m, logger)
}

// ProvideRiskEngine creates the risk metrics engine.
func ProvideRiskEngine() domsvc.RiskEngine {
	return usecase.NewRiskEngine()
}

// ProvideClickHouseClient creates a ClickHouse client when the archive side
// is in play: either as the direct sink backend or behind the Kafka consumer.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Backend.Type != usecase.BackendClickHouse && !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s.%s (ts DateTime, window String, label String, last_price Float64, volatility Float64, max_drawdown Float64, panel_rows Int32, no_data UInt8) ENGINE=MergeTree ORDER BY (window, ts, label)",
			db, snapshotTable(cfg)),
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is the sink.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideSnapshotPublisher creates the Kafka snapshot publisher.
func ProvideSnapshotPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.SnapshotPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
}

// ProvideSnapshotArchive creates ClickHouse snapshot storage.
func ProvideSnapshotArchive(chClient *pkgch.Client, cfg *config.Config) repository.SnapshotArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseSnapshotArchive(chClient.DB(), cfg.ClickHouse.Database+"."+snapshotTable(cfg))
}

// ProvideSnapshotProcessor creates the snapshot sink router.
func ProvideSnapshotProcessor(
	pub repository.SnapshotPublisher,
	archive repository.SnapshotArchive,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SnapshotProcessor {
	return usecase.NewSnapshotProcessor(pub, archive, m, cfg.Backend.Type)
}

// ProvideRefresher creates the refresh worker.
func ProvideRefresher(
	pipeline domsvc.MergePipeline,
	engine domsvc.RiskEngine,
	proc *usecase.SnapshotProcessor,
	catalog *models.InstrumentCatalog,
	m repository.Metrics,
	logger *applogger.Logger,
	cfg *config.Config,
) *usecase.Refresher {
	return usecase.NewRefresher(
		pipeline,
		engine,
		proc,
		catalog,
		m,
		logger,
		cfg.Refresh.Interval,
		models.NormalizeWindow(cfg.Refresh.DefaultWindow),
	)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}

	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSnapshotsHandler registers the handler archiving consumed
// snapshots.
func ProvideKafkaSnapshotsHandler(archive repository.SnapshotArchive, m repository.Metrics, cfg *config.Config) *usecase.KafkaSnapshotsHandler {
	return usecase.NewKafkaSnapshotsHandler(cfg.Kafka.Topic, archive, m)
}

// ProvideResponseCache creates the byte cache backing API responses.
func ProvideResponseCache(cfg *config.Config) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHub creates the websocket notification hub.
func ProvideHub(logger *applogger.Logger) *api.Hub {
	return api.NewHub(logger)
}

// ProvideDashboardHandler creates the dashboard HTTP handler.
func ProvideDashboardHandler(
	logger *applogger.Logger,
	refresher *usecase.Refresher,
	hub *api.Hub,
	archive repository.SnapshotArchive,
	cache icache.BytesCache,
	cfg *config.Config,
) *api.DashboardHandler {
	ttl := cfg.Cache.ResponseTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return api.NewDashboardHandler(logger, refresher, hub, archive, cache, ttl)
}

// logPublisher adapts the Kafka producer to the log collector's publisher.
type logPublisher struct {
	p *pkgkafka.Producer
}

func (lp logPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return lp.p.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	refresher *usecase.Refresher,
	proc *usecase.SnapshotProcessor,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotsHandler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	handler *api.DashboardHandler,
	hub *api.Hub,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	// Aggregate error logs onto the broker when one is wired
	if producer != nil {
		logger.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.Topic + ".logs",
			Publisher:      logPublisher{p: producer},
		})
	}

	refresher.SetNotifier(hub)

	var mh pkgkafka.MessageHandler
	if consumer != nil {
		mh = kh
	}
	app := server.New(cfg, logger, refresher, proc, consumer, mh, chClient)
	app.SetHTTPHandler(handler)
	return app
}

func snapshotTable(cfg *config.Config) string {
	if cfg.ClickHouse.Table != "" {
		return cfg.ClickHouse.Table
	}
	return defaultSnapshotTable
}
