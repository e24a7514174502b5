package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"figurestore/pkg/domain/model"
	"figurestore/pkg/domain/service"
	"figurestore/pkg/infrastructure/amqp"
	"figurestore/pkg/infrastructure/memory"
	"figurestore/pkg/infrastructure/mysql"
	"figurestore/pkg/infrastructure/payment"
	"figurestore/pkg/infrastructure/transport"
)

const shutdownTimeout = 10 * time.Second

func runService(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.WithError(err).Error("failed to close resource")
			}
		}
	}()

	uow, db, err := openStorage(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		closers = append(closers, db)
	}

	dispatcher, closer, err := openDispatcher(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	seed, err := cfg.walletSeed()
	if err != nil {
		return err
	}
	payments := payment.NewWalletProcessor(seed, logger)

	policy := cfg.policy()
	router := transport.Router(transport.Services{
		Catalog:   service.NewCatalogService(uow, dispatcher, logger, policy),
		Inventory: service.NewInventoryService(uow, dispatcher, logger, policy),
		Pricing:   service.NewPricingService(uow, dispatcher, logger),
		Carts:     service.NewCartService(uow, dispatcher, logger, policy),
		Invoices:  service.NewInvoiceService(uow, payments, dispatcher, logger, policy),
		Feedback:  service.NewFeedbackService(uow, dispatcher, logger),
		Wallets:   payments,
	}, logger)

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	killSignalChan := getKillSignalChan()
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case killSignal := <-killSignalChan:
			logKillSignal(logger, killSignal)
			cancel()
		}
		return nil
	})

	g.Go(func() error {
		return serveREST(ctx, cfg.RESTAddress, router, logger)
	})
	g.Go(func() error {
		return serveHealth(ctx, cfg.GRPCAddress, logger)
	})

	return g.Wait()
}

func runMigrate(c *cli.Context) error {
	cfg, err := parseEnv()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	db, err := connectMySQL(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mysql.Migrate(db); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func newLogger(cfg *config) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithError(err).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func openStorage(ctx context.Context, cfg *config, logger log.FieldLogger) (model.UnitOfWork, *sqlx.DB, error) {
	if cfg.StorageDriver == storageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		store, err := memory.NewStore()
		return store, nil, err
	}

	db, err := connectMySQL(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := mysql.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return mysql.NewUnitOfWork(db, logger), db, nil
}

func connectMySQL(ctx context.Context, cfg *config, logger log.FieldLogger) (*sqlx.DB, error) {
	var db *sqlx.DB
	err := retry(ctx, cfg.ConnectTimeout, logger.WithField("target", "mysql"), func() error {
		var err error
		db, err = mysql.Open(ctx, cfg.MySQLDSN)
		return err
	})
	return db, err
}

func openDispatcher(ctx context.Context, cfg *config, logger log.FieldLogger) (model.EventDispatcher, io.Closer, error) {
	if cfg.AMQPURL == "" {
		return amqp.NewLogDispatcher(logger), nil, nil
	}

	var dispatcher *amqp.Dispatcher
	err := retry(ctx, cfg.ConnectTimeout, logger.WithField("target", "amqp"), func() error {
		var err error
		dispatcher, err = amqp.NewDispatcher(cfg.AMQPURL, cfg.AMQPExchange)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return dispatcher, dispatcher, nil
}

// retry backs off exponentially until connect succeeds or timeout elapses.
func retry(ctx context.Context, timeout time.Duration, logger log.FieldLogger, connect func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = timeout
	return backoff.RetryNotify(connect, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.WithError(err).WithField("retry_in", next.String()).Warn("connection failed, retrying")
	})
}

func serveREST(ctx context.Context, address string, router http.Handler, logger log.FieldLogger) error {
	srv := &http.Server{Addr: address, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		logger.WithField("address", address).Info("starting REST server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- errors.Wrap(err, "REST server failed")
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "failed to shut down REST server")
}

func serveHealth(ctx context.Context, address string, logger log.FieldLogger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}

	srv := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(appID, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)

	go func() {
		<-ctx.Done()
		healthServer.Shutdown()
		srv.GracefulStop()
	}()

	logger.WithField("address", address).Info("starting gRPC health server")
	return errors.Wrap(srv.Serve(listener), "gRPC health server failed")
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func logKillSignal(logger log.FieldLogger, killSignal os.Signal) {
	switch killSignal {
	case os.Interrupt:
		logger.Info("got SIGINT...")
	case syscall.SIGTERM:
		logger.Info("got SIGTERM...")
	}
}
