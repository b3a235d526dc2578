// Package parser reads RFC 5322 messages, including nested MIME multipart
// bodies, back into the email model. It is used to summarise and verify
// composed test messages.
package parser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/shineum/email-worker-devsend/internal/email"
)

// Part describes one leaf MIME part in the order it appeared on the wire.
type Part struct {
	MediaType   string
	Disposition string
	Filename    string
	Size        int
}

// Result is a parsed message together with its top-level media type and
// leaf part layout.
type Result struct {
	Email     *email.Email
	MediaType string
	Parts     []Part
}

// Parse parses a raw RFC 5322 email message into an Email struct.
// Leading trace headers such as Received are kept in RawHeaders only.
func Parse(raw []byte) (*email.Email, error) {
	res, err := ParseDetailed(raw)
	if err != nil {
		return nil, err
	}
	return res.Email, nil
}

// ParseDetailed is Parse that also reports the MIME structure. Unrecognized
// parts are logged as warnings and skipped.
func ParseDetailed(raw []byte) (*Result, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	res := &Result{
		Email: &email.Email{
			RawHeaders: make(map[string][]string, len(msg.Header)),
		},
	}
	out := res.Email

	for key, values := range msg.Header {
		out.RawHeaders[key] = values
	}

	out.From, out.FromName = parseFrom(msg.Header.Get("From"))
	out.Subject = decodeHeader(msg.Header.Get("Subject"))
	out.MessageID = msg.Header.Get("Message-Id")
	out.Mailer = msg.Header.Get("X-Mailer")
	out.To = parseAddressList(msg.Header.Get("To"))
	if replyTo := parseAddressList(msg.Header.Get("Reply-To")); len(replyTo) > 0 {
		out.ReplyTo = replyTo[0]
	}
	if date, err := msg.Header.Date(); err == nil {
		out.Date = date
	}

	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		slog.Warn("failed to parse content type, treating as plain text",
			"content_type", contentType,
			"error", err,
		)
		mediaType = "text/plain"
		params = nil
	}
	res.MediaType = mediaType

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return nil, fmt.Errorf("multipart message missing boundary")
		}
		if err := res.walk(multipart.NewReader(msg.Body, boundary)); err != nil {
			return nil, fmt.Errorf("failed to parse multipart message: %w", err)
		}
		return res, nil
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}
	if mediaType == "text/html" {
		out.HtmlBody = string(body)
	} else {
		if mediaType != "text/plain" {
			slog.Warn("unrecognized top-level content type", "content_type", mediaType)
		}
		out.TextBody = string(body)
	}
	res.Parts = append(res.Parts, Part{MediaType: mediaType, Size: len(body)})

	return res, nil
}

// walk consumes every part of reader, descending into nested multiparts.
func (r *Result) walk(reader *multipart.Reader) error {
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read next part: %w", err)
		}

		partType := part.Header.Get("Content-Type")
		if partType == "" {
			partType = "text/plain"
		}

		mediaType, params, err := mime.ParseMediaType(partType)
		if err != nil {
			slog.Warn("failed to parse part content type, skipping",
				"content_type", partType,
				"error", err,
			)
			continue
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			boundary := params["boundary"]
			if boundary == "" {
				slog.Warn("nested multipart missing boundary, skipping")
				continue
			}
			if err := r.walk(multipart.NewReader(part, boundary)); err != nil {
				slog.Warn("failed to parse nested multipart", "error", err)
			}
			continue
		}

		content, err := readPartContent(part)
		if err != nil {
			slog.Warn("failed to read part content",
				"content_type", mediaType,
				"error", err,
			)
			continue
		}

		r.addLeaf(part, mediaType, params, content)
	}
}

// addLeaf files a decoded leaf part as body text or attachment.
func (r *Result) addLeaf(part *multipart.Part, mediaType string, params map[string]string, content []byte) {
	disposition := part.Header.Get("Content-Disposition")
	dispType, _, _ := mime.ParseMediaType(disposition)

	leaf := Part{
		MediaType:   mediaType,
		Disposition: dispType,
		Size:        len(content),
	}

	out := r.Email
	isText := mediaType == "text/plain" || mediaType == "text/html"

	switch {
	case dispType != "attachment" && mediaType == "text/plain" && out.TextBody == "":
		out.TextBody = string(content)
	case dispType != "attachment" && mediaType == "text/html" && out.HtmlBody == "":
		out.HtmlBody = string(content)
	case dispType == "attachment" || !isText:
		filename := extractFilename(part, params)
		if dispType != "attachment" && part.FileName() == "" && params["name"] == "" {
			slog.Warn("unrecognized MIME part, skipping",
				"content_type", mediaType,
				"disposition", disposition,
			)
			return
		}
		leaf.Filename = filename
		out.Attachments = append(out.Attachments, email.Attachment{
			Filename:    filename,
			ContentType: mediaType,
			Content:     content,
		})
	}

	r.Parts = append(r.Parts, leaf)
}

// readPartContent reads the full content of a MIME part. Quoted-printable is
// decoded by the multipart reader itself; base64 is decoded here.
func readPartContent(part *multipart.Part) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(part.Header.Get("Content-Transfer-Encoding")))

	raw, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}

	if encoding != "base64" {
		return raw, nil
	}

	cleaned := strings.NewReplacer("\r", "", "\n", "").Replace(string(raw))
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		// Unpadded base64 shows up in hand-written fixtures.
		decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 content: %w", err)
		}
	}
	return decoded, nil
}

// extractFilename prefers the Content-Disposition filename, then the
// Content-Type name parameter, then a name derived from the media type.
func extractFilename(part *multipart.Part, params map[string]string) string {
	if fn := part.FileName(); fn != "" {
		return fn
	}
	if name := params["name"]; name != "" {
		return name
	}
	if mediaType, _, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		if _, sub, ok := strings.Cut(mediaType, "/"); ok {
			return "attachment." + sub
		}
	}
	return "attachment"
}

// parseFrom splits a From header into its address and display name. An
// unparseable header is returned verbatim as the address.
func parseFrom(raw string) (string, string) {
	if raw == "" {
		return "", ""
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return raw, ""
	}
	return addr.Address, addr.Name
}

// decodeHeader decodes RFC 2047 encoded-words, returning raw on failure.
func decodeHeader(raw string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// parseAddressList splits a comma-separated address list into individual addresses.
func parseAddressList(raw string) []string {
	if raw == "" {
		return nil
	}

	addresses, err := mail.ParseAddressList(raw)
	if err != nil {
		var result []string
		for _, p := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		result = append(result, addr.Address)
	}
	return result
}
