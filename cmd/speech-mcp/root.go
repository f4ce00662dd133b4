package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/book-expert/speech-mcp/internal/audio"
	"github.com/book-expert/speech-mcp/internal/speech"
	"github.com/book-expert/speech-mcp/internal/tools"
)

// Flag names.
const (
	flagText   = "text"
	flagVoice  = "voice"
	flagModel  = "model"
	flagFormat = "format"
	flagOutput = "output"
	flagSearch = "search"
)

// Flag descriptions.
const (
	flagTextDesc   = "Text to convert to speech"
	flagVoiceDesc  = "Voice id (defaults to the configured voice)"
	flagModelDesc  = "Model id (defaults to the configured model)"
	flagFormatDesc = "Output format such as mp3_44100_128"
	flagOutputDesc = "Output file path (defaults to a generated name in the output directory)"
	flagSearchDesc = "Only list voices whose name or category contains this text"
)

// Validation errors.
var (
	ErrTextRequired      = errors.New("--text must be provided")
	ErrOutputIsDir       = errors.New("--output must be a file path, not a directory")
	ErrUnsupportedFormat = errors.New("unsupported --format")
	errVoicesFailed      = errors.New("listing voices failed")
)

const sayTimeout = 5 * time.Minute

// sayFlags holds the parsed say flags.
type sayFlags struct {
	text   string
	voice  string
	model  string
	format string
	output string
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "speech-mcp",
		Short:         "MCP server for text-to-speech and sound effects",
		Long:          "speech-mcp exposes a hosted speech API as MCP tools over stdio.\nRequires ELEVENLABS_API_KEY.",
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCommand(), newSayCommand(), newVoicesCommand())

	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSayCommand() *cobra.Command {
	var flags sayFlags

	cmd := &cobra.Command{
		Use:   "say",
		Short: "Synthesize text once and write the audio file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := validateSayFlags(flags)
			if err != nil {
				return err
			}

			return runSay(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.text, flagText, "t", "", flagTextDesc)
	cmd.Flags().StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	cmd.Flags().StringVar(&flags.model, flagModel, "", flagModelDesc)
	cmd.Flags().StringVar(&flags.format, flagFormat, "", flagFormatDesc)
	cmd.Flags().StringVarP(&flags.output, flagOutput, "o", "", flagOutputDesc)

	return cmd
}

func newVoicesCommand() *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "voices",
		Short: "List the voices available to the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVoices(cmd.Context(), cmd.OutOrStdout(), search)
		},
	}

	cmd.Flags().StringVarP(&search, flagSearch, "s", "", flagSearchDesc)

	return cmd
}

// validateSayFlags checks the say flags before any network or file work.
func validateSayFlags(flags sayFlags) error {
	if flags.text == "" {
		return ErrTextRequired
	}

	if flags.format != "" && !speech.IsSupportedFormat(flags.format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, flags.format)
	}

	if flags.output != "" && (filepath.Base(flags.output) == "." || os.IsPathSeparator(flags.output[len(flags.output)-1])) {
		return ErrOutputIsDir
	}

	return nil
}

// runServe serves MCP over stdin/stdout until the client disconnects or a
// signal arrives. stdout carries protocol frames only, so it is detached
// from os.Stdout before anything else can write to it.
func runServe(parent context.Context) error {
	protocolOut := os.Stdout
	os.Stdout = os.Stderr

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	server := tools.NewServer(Version, application.handlers)

	application.log.System("speech-mcp %s serving on stdio, audio goes to %s", Version, application.sink.Dir())

	err = server.Run(ctx, &mcp.IOTransport{Reader: os.Stdin, Writer: protocolOut})
	if err != nil && !errors.Is(err, context.Canceled) {
		application.log.Error("MCP server stopped: %v", err)

		return fmt.Errorf("mcp server: %w", err)
	}

	application.log.Info("MCP server stopped")

	return nil
}

func runSay(parent context.Context, out io.Writer, flags sayFlags) error {
	ctx, cancel := context.WithTimeout(parent, sayTimeout)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	defaults := application.cfg.Speech

	req := speech.SynthesisRequest{
		Text:         flags.text,
		VoiceID:      firstSet(flags.voice, defaults.VoiceID),
		ModelID:      firstSet(flags.model, defaults.ModelID),
		OutputFormat: firstSet(flags.format, defaults.OutputFormat),
		Normalize:    defaults.NormalizeText,
	}

	ext, err := speech.ExtensionFor(req.OutputFormat)
	if err != nil {
		return err
	}

	data, err := application.service.TextToSpeech(ctx, req)
	if err != nil {
		application.log.Error("say failed: %v", err)

		return err
	}

	outputPath, err := writeSayOutput(application.sink, flags.output, flags.text, ext, data)
	if err != nil {
		return err
	}

	application.log.Info("Wrote %s (%d bytes)", outputPath, len(data))
	fmt.Fprintf(out, "Generated: %s (%s)\n", outputPath, audio.FormatSize(len(data)))

	return nil
}

// writeSayOutput writes to the explicit path when given, otherwise into the
// configured output directory under a generated name.
func writeSayOutput(sink *audio.Sink, output, label, ext string, data []byte) (string, error) {
	if output == "" {
		return sink.Save(audio.FileName("tts", label, ext, time.Now()), data)
	}

	target, err := audio.NewSink(filepath.Dir(output))
	if err != nil {
		return "", err
	}

	return target.Save(filepath.Base(output), data)
}

func runVoices(parent context.Context, out io.Writer, search string) error {
	ctx, cancel := context.WithTimeout(parent, sayTimeout)
	defer cancel()

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.close()

	result, _, err := application.handlers.ListVoices(ctx, nil, tools.ListVoicesInput{Search: search})
	if err != nil {
		return err
	}

	for _, content := range result.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			fmt.Fprintln(out, text.Text)
		}
	}

	if result.IsError {
		return errVoicesFailed
	}

	return nil
}

func firstSet(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
