package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-mcp/internal/apiclient"
	"github.com/book-expert/speech-mcp/internal/audio"
	"github.com/book-expert/speech-mcp/internal/config"
	"github.com/book-expert/speech-mcp/internal/speech"
	"github.com/book-expert/speech-mcp/internal/tools"
)

const (
	bootstrapLogFile = "speech-mcp-bootstrap.log"
	logFile          = "speech-mcp.log"
)

// app holds everything a command needs once startup succeeded.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	service  *speech.Service
	sink     *audio.Sink
	handlers *tools.Handlers
}

// newApp loads configuration, opens the log and builds the API client.
// A missing project file is not fatal here; the built-in defaults apply.
// A missing API key is.
func newApp() (*app, error) {
	bootstrapLog, err := logger.New(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap logger: %w", err)
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Warn("No project configuration, using defaults: %v", err)

		cfg = config.Default()
	}

	_ = bootstrapLog.Close()

	log, err := logger.New(cfg.Paths.BaseLogsDir, logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	client, err := apiclient.Default(
		apiclient.WithLogger(log),
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.Speech.Timeout()}),
	)
	if err != nil {
		log.Error("Failed to create API client: %v", err)
		_ = log.Close()

		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	sink, err := audio.NewSink(cfg.Speech.OutputDir)
	if err != nil {
		_ = log.Close()

		return nil, fmt.Errorf("failed to create audio sink: %w", err)
	}

	service := speech.NewService(client)

	handlers, err := tools.NewHandlers(service, sink, cfg.Speech, log)
	if err != nil {
		_ = log.Close()

		return nil, fmt.Errorf("failed to create tool handlers: %w", err)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		service:  service,
		sink:     sink,
		handlers: handlers,
	}, nil
}

func (a *app) close() {
	closeErr := a.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
	}
}
