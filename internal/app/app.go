package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	confluent "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"golang.org/x/sync/errgroup"

	"github.com/sanchey92/order-service/internal/command"
	"github.com/sanchey92/order-service/internal/config"
	"github.com/sanchey92/order-service/internal/http/router"
	"github.com/sanchey92/order-service/internal/service/catalog"
	"github.com/sanchey92/order-service/internal/service/order"
	"github.com/sanchey92/order-service/internal/storage/pg"
	"github.com/sanchey92/order-service/internal/storage/sqlite"
	"github.com/sanchey92/order-service/internal/telemetry"
	"github.com/sanchey92/order-service/pkg/kafka"
	"github.com/sanchey92/order-service/pkg/outbox"
	"github.com/sanchey92/order-service/pkg/rabbitmq"
)

// store is the full set of persistence capabilities the service wires up.
// Both storage drivers implement it.
type store interface {
	order.CustomerProvider
	order.ProductProvider
	order.OrderStore
	catalog.Saver
	outbox.RelayRepo
	Migrate(ctx context.Context) error
}

type App struct {
	logger   *slog.Logger
	cfg      *config.Config
	server   *http.Server
	relay    *outbox.Relay
	consumer *kafka.Consumer
	closers  []func()
}

func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.App.LogLevel, cfg.App.Name)
	slog.SetDefault(logger)
	logger.Info("initialising", slog.String("storage", cfg.Storage.Driver))

	a := &App{logger: logger, cfg: cfg}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	shutdownTracer, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Telemetry.OTELEndpoint,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("tracer shutdown", slog.Any("error", err))
		}
	})

	st, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}
	if cfg.Storage.Migrate {
		if err = st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("app creation: %w", err)
		}
	}

	orderService := order.NewOrderService(logger, st, st, st)
	catalogService := catalog.NewCatalogService(logger, st)

	var producer *kafka.Producer
	if (cfg.Outbox.Enabled && cfg.Outbox.Sink == config.SinkKafka) || cfg.Kafka.ConsumeCommands {
		producer, err = kafka.NewProducer(&kafka.ProducerConfig{
			Brokers:     cfg.Kafka.Brokers,
			Acks:        cfg.Kafka.Acks,
			LingerMs:    cfg.Kafka.LingerMs,
			Compression: cfg.Kafka.Compression,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("app creation: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
	}

	if cfg.Outbox.Enabled {
		var publisher outbox.Publisher = producer
		if cfg.Outbox.Sink == config.SinkRabbitMQ {
			rmq, err := rabbitmq.NewPublisher(&rabbitmq.PublisherConfig{
				URL:      cfg.RabbitMQ.URL,
				Exchange: cfg.RabbitMQ.Exchange,
			}, logger)
			if err != nil {
				return nil, fmt.Errorf("app creation: %w", err)
			}
			a.closers = append(a.closers, rmq.Close)
			publisher = rmq
		}

		a.relay = outbox.NewRelay(st, publisher, logger, outbox.Config{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			MaxRetries:   cfg.Outbox.MaxRetries,
		})
	}

	if cfg.Kafka.ConsumeCommands {
		h := command.NewHandler(logger, orderService)
		a.consumer, err = kafka.NewConsumer(&kafka.ConsumerConfig{
			Topics:            []string{cfg.Kafka.CommandTopic},
			Brokers:           cfg.Kafka.Brokers,
			ConsumerGroup:     cfg.Kafka.ConsumerGroup,
			OffsetReset:       "earliest",
			SessionTimeoutMs:  cfg.Kafka.SessionTimeoutMs,
			MaxPollInterval:   cfg.Kafka.MaxPollInterval,
			PartitionStrategy: "cooperative-sticky",
			DLQTopic:          cfg.Kafka.DLQTopic,
		}, func(ctx context.Context, msg *confluent.Message) error {
			return h.Handle(ctx, msg.Value)
		}, producer, logger)
		if err != nil {
			return nil, fmt.Errorf("app creation: %w", err)
		}
	}

	a.server = &http.Server{
		Addr:         net.JoinHostPort("", strconv.Itoa(cfg.HTTP.Port)),
		Handler:      router.New(logger, orderService, catalogService),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (store, error) {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		if path := a.cfg.SQLite.Path; path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		st, err := sqlite.NewSQLiteStorage(ctx, a.logger, &sqlite.StorageConfig{
			Path:       a.cfg.SQLite.Path,
			EventTopic: a.cfg.Kafka.EventTopic,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := st.Close(); err != nil {
				a.logger.Error("sqlite close", slog.Any("error", err))
			}
		})
		a.logger.Info("sqlite opened", slog.String("path", a.cfg.SQLite.Path))
		return st, nil

	default:
		st, err := pg.NewPGStorage(ctx, a.logger, &pg.StorageConfig{
			DSN:             a.cfg.Postgres.DSN,
			MaxConns:        a.cfg.Postgres.MaxConns,
			MinConns:        a.cfg.Postgres.MinConns,
			MaxConnLife:     a.cfg.Postgres.MaxConnLifetime,
			MaxConnIdleTime: a.cfg.Postgres.MaxConnIdleTime,
			EventTopic:      a.cfg.Kafka.EventTopic,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		a.logger.Info("postgres connected")
		return st, nil
	}
}

// Run serves until ctx is cancelled or a component fails, then shuts every
// component down and releases resources.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		a.logger.Info("http server stopped")
		return nil
	})

	if a.relay != nil {
		g.Go(func() error { return a.relay.Run(gctx) })
	}
	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(gctx) })
	}

	return g.Wait()
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
