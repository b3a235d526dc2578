// Package resend implements a Provider that sends the structured test
// message through the Resend API.
package resend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/resend/resend-go/v2"

	"github.com/shineum/email-worker-devsend/internal/email"
	"github.com/shineum/email-worker-devsend/internal/provider"
)

// EmailsAPI is the subset of the Resend emails service used here.
type EmailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Provider sends messages via Resend. Resend builds its own MIME, so the
// structured message is sent rather than the raw payload.
type Provider struct {
	emails EmailsAPI
	from   string
}

// New creates a Provider authenticated with apiKey. A non-empty from
// overrides the message sender and must be on a verified domain.
func New(apiKey, from string) *Provider {
	return NewWithClient(resend.NewClient(apiKey).Emails, from)
}

// NewWithClient creates a Provider on top of an existing emails service.
func NewWithClient(emails EmailsAPI, from string) *Provider {
	return &Provider{emails: emails, from: from}
}

// Deliver sends env.Message once and returns the Resend message id as the
// response body.
func (p *Provider) Deliver(ctx context.Context, env *provider.Envelope) (*provider.Response, error) {
	if env.Message == nil {
		return nil, fmt.Errorf("resend provider needs the structured message")
	}

	params := buildRequest(env.Message, p.from)

	sent, err := p.emails.SendWithContext(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("resend send failed: %w", err)
	}

	slog.Debug("resend accepted message", "resend_id", sent.Id)

	return &provider.Response{
		Provider:   p.Name(),
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       []byte(sent.Id),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "resend"
}

// buildRequest maps msg onto a Resend send request.
func buildRequest(msg *email.Email, fromOverride string) *resend.SendEmailRequest {
	from := msg.From
	if fromOverride != "" {
		from = fromOverride
	}
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, from)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Text:    msg.TextBody,
		Html:    msg.HtmlBody,
		ReplyTo: msg.ReplyTo,
	}

	headers := make(map[string]string, 2)
	if msg.Mailer != "" {
		headers["X-Mailer"] = msg.Mailer
	}
	if msg.MessageID != "" {
		headers["Message-ID"] = msg.MessageID
	}
	if len(headers) > 0 {
		req.Headers = headers
	}

	for _, att := range msg.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    att.Filename,
			Content:     att.Content,
			ContentType: att.ContentType,
		})
	}

	return req
}
