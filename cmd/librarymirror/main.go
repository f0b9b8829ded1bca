// Command librarymirror mirrors the library catalog contract into a relational store.
//
// It subscribes to the contract events over a websocket RPC endpoint and projects
// every event into the configured gateway until SIGINT or SIGTERM arrives. Then it
// stops the subscription, waits (bounded by the shutdown timeout) for events still
// being projected, and only then closes the RPC client and the database pool.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AntonStoeckl/library-chain-mirror/chainstream"
	"github.com/AntonStoeckl/library-chain-mirror/config"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/projection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err.Error())
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if runErr := run(cfg, logger); runErr != nil {
		logger.Error("library mirror stopped with error", "error", runErr.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	obs, err := newObservability(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer obs.shutdown(logger, cfg.ShutdownTimeout)

	gateway, closeGateway, err := openGateway(ctx, cfg, obs)
	if err != nil {
		return err
	}

	// Handlers still running after a drain timeout keep using the pool and the RPC client until exit.
	handlersRunning := false
	defer func() {
		if !handlersRunning {
			closeGateway()
		}
	}()

	logger.Info("gateway ready", "adapter", cfg.DBAdapter)

	conn, err := chainstream.Open(ctx, cfg.Endpoint(), cfg.Contract(), obs.streamOptions()...)
	if err != nil {
		return err
	}
	defer func() {
		if !handlersRunning {
			conn.Close()
		}
	}()

	router, err := newRouter(cfg, conn, gateway, obs)
	if err != nil {
		return err
	}

	if subscribeErr := conn.Subscribe(ctx, router.Dispatch); subscribeErr != nil {
		return subscribeErr
	}

	logger.Info("library mirror started", "contract", cfg.Contract().Hex())

	var streamErr error

	select {
	case sig := <-sigChan:
		logger.Info("received signal, initiating graceful shutdown", "signal", sig.String())
	case streamErr = <-conn.Err():
		logger.Error("event stream failed, shutting down", "error", streamErr.Error())
	}

	var drainErr error
	handlersRunning, drainErr = stopAndDrain(logger, conn, router, cfg.ShutdownTimeout)
	streamErr = errors.Join(streamErr, drainErr)

	logger.Info("library mirror stopped")

	return streamErr
}

func newRouter(cfg config.Config, conn *chainstream.Connection, gateway mirror.Gateway, obs *observability) (*projection.Router, error) {
	bookPolicy, err := projection.NewRetryPolicy(
		projection.WithMaxAttempts(cfg.BookPublisherAttempts),
		projection.WithFixedDelay(cfg.BookPublisherDelay),
	)
	if err != nil {
		return nil, err
	}

	chapterPolicy, err := projection.NewRetryPolicy(
		projection.WithMaxAttempts(cfg.ChapterBookAttempts),
		projection.WithFixedDelay(cfg.ChapterBookDelay),
	)
	if err != nil {
		return nil, err
	}

	options := append([]projection.Option{
		projection.WithBookPublisherPolicy(bookPolicy),
		projection.WithChapterBookPolicy(chapterPolicy),
	}, obs.projectionOptions()...)

	return projection.NewRouter(projection.NewTimestampResolver(conn), gateway, options...)
}
