// Package main is the entry point for the interactive bulk mailer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/shineum/bulk-mailer/internal/addressbook"
	"github.com/shineum/bulk-mailer/internal/config"
	"github.com/shineum/bulk-mailer/internal/console"
	"github.com/shineum/bulk-mailer/internal/dispatch"
	"github.com/shineum/bulk-mailer/internal/navigation"
	"github.com/shineum/bulk-mailer/internal/parser"
	"github.com/shineum/bulk-mailer/internal/session"
	"github.com/shineum/bulk-mailer/internal/store"
	"github.com/shineum/bulk-mailer/internal/transport"
	"github.com/shineum/bulk-mailer/internal/transport/graph"
	"github.com/shineum/bulk-mailer/internal/transport/ses"
	"github.com/shineum/bulk-mailer/internal/transport/smtp"
	"github.com/shineum/bulk-mailer/internal/transport/stdout"
	"github.com/shineum/bulk-mailer/internal/ui"
)

var version = "dev"

func headline() string {
	return "Bulk Mailer v" + version
}

type options struct {
	configPath     string
	messageFile    string
	recipients     []string
	recipientsFile string
	verbose        bool
	showVersion    bool
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("bulk-mailer", pflag.ContinueOnError)
	fs.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file (optional)")
	fs.StringVarP(&opts.messageFile, "message-file", "m", "", "message file to load at startup")
	fs.StringArrayVarP(&opts.recipients, "recipient", "r", nil, `recipient to add, as "Name <address>" (repeatable)`)
	fs.StringVarP(&opts.recipientsFile, "recipients-file", "f", "", "recipient file appended after --recipient entries")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	fs.BoolVarP(&opts.showVersion, "version", "V", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(1)
	}
	if opts.showVersion {
		fmt.Println(headline())
		return
	}

	// Load configuration
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, opts)

	// Setup structured logging
	logFile := setupLogger(cfg.Logging.Level, cfg.Logging.File)
	defer logFile.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr, err := selectTransport(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up transport", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sess := session.New()
	profiles := store.New(cfg.Profiles.File)
	if err := profiles.Load(sess.Connections); err != nil {
		slog.Error("failed to load profiles", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := preload(sess, cfg, opts.recipients); err != nil {
		slog.Error("failed to preload session", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	slog.Info("starting bulk-mailer",
		"version", version,
		"transport", tr.Name(),
		"profiles", sess.Connections.Len(),
		"recipients", sess.Recipients.Len(),
		"message_loaded", sess.Message.Current() != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		slog.Info("received signal, leaving", "signal", sig)
		cancel()
		fmt.Fprintln(os.Stderr)
		os.Exit(130)
	}()

	app := ui.New(ui.Config{
		Console:        console.Stdio(console.WithHeadline(headline())),
		Session:        sess,
		Store:          profiles,
		Pipeline:       dispatch.New(tr, dispatch.WithTimeout(cfg.Dispatch.Timeout)),
		MaxMessageSize: cfg.Message.MaxSize,
	})

	exit := func(code int) {
		logFile.Close()
		os.Exit(code)
	}
	if err := navigation.New(app.Root(), navigation.WithExitFunc(exit)).Run(ctx); err != nil {
		slog.Error("session aborted", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// applyFlags lets command line flags override the configuration.
func applyFlags(cfg *config.Config, opts *options) {
	if opts.messageFile != "" {
		cfg.Message.File = opts.messageFile
	}
	if opts.recipientsFile != "" {
		cfg.Recipients.File = opts.recipientsFile
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
}

// setupLogger configures the global slog logger with JSON output and the
// specified log level. The console owns stdout, so logs go to path and fall
// back to stderr when it cannot be opened.
func setupLogger(level, path string) io.Closer {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if path != "" {
		f, err := openLogFile(path)
		if err == nil {
			w, closer = f, f
		} else {
			fmt.Fprintf(os.Stderr, "logging to stderr: %v\n", err)
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
	return closer
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// selectTransport chooses the delivery backend based on configuration.
func selectTransport(ctx context.Context, cfg *config.Config) (transport.Transport, error) {
	switch cfg.Dispatch.Transport {
	case "ses":
		if !cfg.SESConfigured() {
			return nil, errors.New("SES transport selected but SES_REGION is not set")
		}
		slog.Info("using AWS SES transport", "region", cfg.SES.Region)
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
		})

	case "graph":
		if !cfg.GraphConfigured() {
			return nil, errors.New("graph transport selected but GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
		}
		slog.Info("using Microsoft Graph transport", "tenant_id", cfg.Graph.TenantID)
		return graph.New(graph.Config{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Timeout:      cfg.Dispatch.Timeout,
		}), nil

	case "stdout":
		slog.Info("using stdout transport")
		return stdout.New(), nil

	case "smtp", "":
		return smtp.New(smtp.Config{
			HeloName:      cfg.Dispatch.HeloName,
			Timeout:       cfg.Dispatch.Timeout,
			TLSSkipVerify: cfg.Dispatch.TLSSkipVerify,
		}), nil

	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Dispatch.Transport)
	}
}

// preload fills the session from the command line and the configuration:
// --recipient entries first, then the recipient file, then the message.
func preload(sess *session.Context, cfg *config.Config, recipients []string) error {
	for _, line := range recipients {
		parsed, err := addressbook.ParseLine(line)
		if err != nil {
			return fmt.Errorf("invalid recipient %q: %w", line, err)
		}
		sess.Recipients.Extend(parsed)
	}

	if cfg.Recipients.File != "" {
		loaded, err := addressbook.Load(cfg.Recipients.File)
		if err != nil {
			return err
		}
		sess.Recipients.Extend(loaded)
	}

	if cfg.Message.File != "" {
		msg, err := parser.LoadFile(cfg.Message.File, cfg.Message.MaxSize)
		if err != nil {
			return err
		}
		sess.Message.Set(msg, cfg.Message.File)
	}
	return nil
}
