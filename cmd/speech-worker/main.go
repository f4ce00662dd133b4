// main package for the speech-worker service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/book-expert/speech-mcp/internal/apiclient"
	"github.com/book-expert/speech-mcp/internal/config"
	"github.com/book-expert/speech-mcp/internal/objectstore"
	"github.com/book-expert/speech-mcp/internal/speech"
	"github.com/book-expert/speech-mcp/internal/worker"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), "speech-worker-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	err = cfg.ValidateNATS()
	if err != nil {
		bootstrapLog.Error("Invalid configuration: %v", err)

		return err
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir, "speech-worker.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return err
	}

	_ = bootstrapLog.Close()

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log)
}

// serve wires the API client, NATS and the object stores into a worker and
// runs it until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	clientCfg, err := apiclient.ConfigFromEnv()
	if err != nil {
		log.Error("Failed to read API client configuration: %v", err)

		return err
	}

	clientCfg.Timeout = cfg.Speech.Timeout()

	client, err := apiclient.NewClient(clientCfg, apiclient.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("speech-worker"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	js, err := jetstream.New(natsConnection)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	var textStore, audioStore *objectstore.Store

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		var openErr error

		textStore, openErr = objectstore.Open(groupCtx, js, cfg.NATS.TextObjectStoreBucket)

		return openErr
	})

	group.Go(func() error {
		var openErr error

		audioStore, openErr = objectstore.Open(groupCtx, js, cfg.NATS.AudioObjectStoreBucket)

		return openErr
	})

	err = group.Wait()
	if err != nil {
		log.Error("Failed to open object stores: %v", err)

		return err
	}

	speechWorker, err := worker.NewNatsWorker(natsConnection, worker.Options{
		Subject:       cfg.NATS.TextProcessedSubject,
		NotifySubject: cfg.NATS.AudioChunkCreatedSubject,
		TextStore:     textStore,
		AudioStore:    audioStore,
		Synthesizer:   speech.NewService(client),
		Defaults:      cfg.Speech,
		JobTimeout:    clientCfg.MaxDuration(),
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("speech-worker initialized. Listening for jobs on subject: %s", cfg.NATS.TextProcessedSubject)

	err = speechWorker.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker stopped: %w", err)
	}

	log.Info("speech-worker stopped")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
