// Package sender composes a test email and hands it to a delivery provider in
// one synchronous call.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shineum/email-worker-devsend/internal/compose"
	"github.com/shineum/email-worker-devsend/internal/provider"
)

// Defaults applied to empty Request fields.
const (
	DefaultSubject = "Testing Email Workers Local Dev"
	DefaultBody    = "Hi there"
)

// Request describes one test email.
type Request struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []string
}

// Config holds the configuration for creating a Sender.
type Config struct {
	Provider provider.Provider
	Composer *compose.Composer

	// DefaultSubject and DefaultBody replace the package defaults when set.
	DefaultSubject string
	DefaultBody    string
}

// Sender builds messages and delivers them through a single Provider.
// It keeps no per-call state and is safe for concurrent use when its
// Provider is.
type Sender struct {
	provider       provider.Provider
	composer       *compose.Composer
	defaultSubject string
	defaultBody    string
}

// New creates a Sender. A nil Composer gets default options.
func New(cfg Config) *Sender {
	s := &Sender{
		provider:       cfg.Provider,
		composer:       cfg.Composer,
		defaultSubject: cfg.DefaultSubject,
		defaultBody:    cfg.DefaultBody,
	}
	if s.composer == nil {
		s.composer = compose.New(compose.Options{})
	}
	if s.defaultSubject == "" {
		s.defaultSubject = DefaultSubject
	}
	if s.defaultBody == "" {
		s.defaultBody = DefaultBody
	}
	return s
}

// Send composes req and delivers it exactly once. Attachment problems are
// reported before the provider is contacted. The provider's response is
// returned without interpretation.
func (s *Sender) Send(ctx context.Context, req Request) (*provider.Response, error) {
	env, err := s.Envelope(req)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Deliver(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to deliver via %s: %w", s.provider.Name(), err)
	}

	if !resp.OK() {
		slog.Warn("target answered with a non-2xx status",
			"provider", resp.Provider,
			"status", resp.StatusCode,
			"message_id", env.Message.MessageID,
		)
	} else {
		slog.Info("message delivered",
			"provider", resp.Provider,
			"status", resp.StatusCode,
			"message_id", env.Message.MessageID,
		)
	}

	return resp, nil
}

// Envelope builds the exact payload Send would deliver for req.
func (s *Sender) Envelope(req Request) (*provider.Envelope, error) {
	subject := req.Subject
	if subject == "" {
		subject = s.defaultSubject
	}
	body := req.Body
	if body == "" {
		body = s.defaultBody
	}

	msg, err := s.composer.Build(compose.BuildRequest{
		From:        req.From,
		To:          req.To,
		Subject:     subject,
		Body:        body,
		Attachments: req.Attachments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	raw, err := compose.Render(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to render message: %w", err)
	}

	payload := compose.PrependReceived(raw, req.To, s.composer.Now())

	slog.Debug("composed message",
		"message_id", msg.MessageID,
		"attachments", len(msg.Attachments),
		"bytes", len(payload),
	)

	return &provider.Envelope{
		From:    req.From,
		To:      req.To,
		Raw:     payload,
		Message: msg,
	}, nil
}
