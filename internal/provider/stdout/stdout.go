// Package stdout implements a dry-run Provider that prints a summary of each
// message instead of delivering it.
package stdout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/shineum/email-worker-devsend/internal/parser"
	"github.com/shineum/email-worker-devsend/internal/provider"
)

// Provider prints messages in a human-readable format.
type Provider struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Provider that writes to os.Stdout.
func New() *Provider {
	return &Provider{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Provider that writes to the given writer.
func NewWithWriter(w io.Writer) *Provider {
	return &Provider{writer: w}
}

// Deliver parses the raw payload back and prints what the worker would
// receive. The response body only reports that a summary was printed.
func (p *Provider) Deliver(_ context.Context, env *provider.Envelope) (*provider.Response, error) {
	res, err := parser.ParseDetailed(env.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outgoing message: %w", err)
	}
	msg := res.Email

	var b strings.Builder

	b.WriteString("========================================\n")
	fmt.Fprintf(&b, "Envelope: %s -> %s (%s)\n", env.From, env.To, formatSize(len(env.Raw)))
	if msg.FromName != "" {
		fmt.Fprintf(&b, "From: %q <%s>\n", msg.FromName, msg.From)
	} else {
		fmt.Fprintf(&b, "From: %s\n", msg.From)
	}
	fmt.Fprintf(&b, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\n", msg.MessageID)
	fmt.Fprintf(&b, "Content-Type: %s (%d parts)\n", res.MediaType, len(res.Parts))
	b.WriteString("Body:\n")

	body := msg.TextBody
	if body == "" {
		body = msg.HtmlBody
	}
	b.WriteString(body + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s [%s] (%s)", att.Filename, att.ContentType, formatSize(len(att.Content))))
		}
		fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(attachments, ", "))
	}

	b.WriteString("========================================\n")

	summary := b.String()
	if _, err := io.WriteString(p.writer, summary); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	return &provider.Response{
		Provider:   p.Name(),
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       []byte(fmt.Sprintf("dry run, %s message summarized", formatSize(len(env.Raw)))),
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
