// Package compose builds the RFC 5322 test messages that are delivered to the
// email worker: headers, a plain text part and optional file attachments.
package compose

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shineum/email-worker-devsend/internal/email"
)

// DefaultFromName is the display name placed in front of the sender address.
const DefaultFromName = "John"

// DefaultMailer is the X-Mailer value stamped on every message.
const DefaultMailer = "devsend"

// ErrAttachmentNotFound is returned when an attachment path does not point at
// an existing regular file.
var ErrAttachmentNotFound = errors.New("attachment file not found")

// attachmentError names the offending path and unwraps to both
// ErrAttachmentNotFound and the underlying stat error.
type attachmentError struct {
	path string
	err  error
}

func (e *attachmentError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAttachmentNotFound, e.path)
}

func (e *attachmentError) Unwrap() []error {
	return []error{ErrAttachmentNotFound, e.err}
}

// BuildRequest holds the caller-supplied parts of a message.
type BuildRequest struct {
	From        string
	To          string
	Subject     string
	Body        string
	Attachments []string
}

// Options tunes the fixed parts of a built message. Zero values fall back to
// the package defaults, the system clock and random Message-IDs.
type Options struct {
	FromName     string
	Mailer       string
	Now          func() time.Time
	NewMessageID func() string
}

// Composer turns BuildRequests into Email values.
type Composer struct {
	fromName     string
	mailer       string
	now          func() time.Time
	newMessageID func() string
}

// New creates a Composer with the given options.
func New(opts Options) *Composer {
	c := &Composer{
		fromName:     opts.FromName,
		mailer:       opts.Mailer,
		now:          opts.Now,
		newMessageID: opts.NewMessageID,
	}
	if c.fromName == "" {
		c.fromName = DefaultFromName
	}
	if c.mailer == "" {
		c.mailer = DefaultMailer
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newMessageID == nil {
		c.newMessageID = NewMessageID
	}
	return c
}

// Now returns the composer's current time.
func (c *Composer) Now() time.Time {
	return c.now()
}

// Build assembles an Email from req, reading every attachment from disk.
// Addresses, subject and body are not validated.
func (c *Composer) Build(req BuildRequest) (*email.Email, error) {
	msg := &email.Email{
		From:      req.From,
		FromName:  c.fromName,
		To:        []string{req.To},
		ReplyTo:   req.From,
		Subject:   req.Subject,
		TextBody:  req.Body,
		Date:      c.now(),
		MessageID: c.newMessageID(),
		Mailer:    c.mailer,
	}

	for _, path := range req.Attachments {
		att, err := LoadAttachment(path)
		if err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	return msg, nil
}

// LoadAttachment reads the file at path into an Attachment named after its
// base name. The file must exist before it is opened.
func LoadAttachment(path string) (email.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return email.Attachment{}, &attachmentError{path: path, err: err}
		}
		return email.Attachment{}, fmt.Errorf("failed to stat attachment %s: %w", path, err)
	}
	if info.IsDir() {
		return email.Attachment{}, &attachmentError{path: path, err: fs.ErrNotExist}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return email.Attachment{}, fmt.Errorf("failed to read attachment %s: %w", path, err)
	}

	att := email.Attachment{
		Filename:    filepath.Base(path),
		ContentType: ContentTypeFor(path),
		Content:     content,
	}

	slog.Debug("loaded attachment",
		"filename", att.Filename,
		"content_type", att.ContentType,
		"size", len(content),
	)

	return att, nil
}
