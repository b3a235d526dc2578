// Package email defines the message model shared by the composer, the parser
// and the delivery providers.
package email

import "time"

// Email is a single test message, either built from a send request or parsed
// back from its wire form.
type Email struct {
	From        string
	FromName    string
	To          []string
	ReplyTo     string
	Subject     string
	TextBody    string
	HtmlBody    string
	Date        time.Time
	MessageID   string
	Mailer      string
	Attachments []Attachment
	RawHeaders  map[string][]string
}

// Attachment represents a file attached to an email message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// HasAttachments reports whether the message carries any attachment parts.
func (e *Email) HasAttachments() bool {
	return len(e.Attachments) > 0
}
