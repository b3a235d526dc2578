// Package main is the entry point for devsend, which sends a test email to a
// locally running email worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shineum/email-worker-devsend/internal/compose"
	"github.com/shineum/email-worker-devsend/internal/config"
	"github.com/shineum/email-worker-devsend/internal/provider"
	"github.com/shineum/email-worker-devsend/internal/provider/graph"
	"github.com/shineum/email-worker-devsend/internal/provider/resend"
	"github.com/shineum/email-worker-devsend/internal/provider/ses"
	"github.com/shineum/email-worker-devsend/internal/provider/stdout"
	"github.com/shineum/email-worker-devsend/internal/provider/worker"
	"github.com/shineum/email-worker-devsend/internal/sender"
)

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("devsend failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("devsend", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file (optional)")
	envFile := fs.String("env-file", ".env", "path to a .env file loaded before the environment is read")
	providerName := fs.String("provider", "", "delivery provider: worker, stdout, ses, graph or resend (overrides PROVIDER)")
	from := fs.String("from", "sender@example.com", "sender address")
	to := fs.String("to", "recipient@example.com", "recipient address")
	subject := fs.String("subject", "", "subject line (defaults to the configured subject)")
	body := fs.String("body", "", "plain text body (defaults to the configured body)")
	var attachments stringList
	fs.Var(&attachments, "attach", "file to attach; repeat for several files")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if *providerName != "" {
		cfg.Provider = strings.ToLower(*providerName)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogger(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prov, err := selectProvider(ctx, cfg, out)
	if err != nil {
		return err
	}

	s := sender.New(sender.Config{
		Provider: prov,
		Composer: compose.New(compose.Options{
			FromName: cfg.Message.FromName,
			Mailer:   cfg.Message.Mailer,
		}),
		DefaultSubject: cfg.Message.Subject,
		DefaultBody:    cfg.Message.Body,
	})

	slog.Info("sending test email",
		"provider", prov.Name(),
		"from", *from,
		"to", *to,
		"attachments", len(attachments),
	)

	resp, err := s.Send(ctx, sender.Request{
		From:        *from,
		To:          *to,
		Subject:     *subject,
		Body:        *body,
		Attachments: attachments,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Status: %d\n", resp.StatusCode)
	fmt.Fprintf(out, "Response: %s\n", resp.Text())
	return nil
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with JSON output on stderr
// and the specified log level. Stdout carries the command's result.
func setupLogger(level string) {
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

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// selectProvider builds the delivery provider named by cfg.Provider. The
// stdout provider prints to out.
func selectProvider(ctx context.Context, cfg *config.Config, out io.Writer) (provider.Provider, error) {
	switch cfg.Provider {
	case config.ProviderWorker:
		slog.Debug("using worker provider", "url", cfg.Worker.URL)
		return worker.New(worker.Config{
			URL:         cfg.Worker.URL,
			ContentType: cfg.Worker.ContentType,
			Timeout:     cfg.Worker.Timeout,
		})

	case config.ProviderStdout:
		return stdout.NewWithWriter(out), nil

	case config.ProviderSES:
		slog.Debug("using AWS SES provider", "region", cfg.SES.Region)
		p, err := ses.New(ctx, ses.SESProviderConfig{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SES provider: %w", err)
		}
		return p, nil

	case config.ProviderGraph:
		slog.Debug("using Microsoft Graph provider", "sender", cfg.Graph.Sender)
		return graph.New(graph.GraphProviderConfig{
			TenantID:     cfg.Graph.TenantID,
			ClientID:     cfg.Graph.ClientID,
			ClientSecret: cfg.Graph.ClientSecret,
			Sender:       cfg.Graph.Sender,
		}), nil

	case config.ProviderResend:
		return resend.New(cfg.Resend.APIKey, cfg.Resend.From), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
