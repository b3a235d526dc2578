package compose

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"
	"unicode"

	"github.com/shineum/email-worker-devsend/internal/email"
)

// dateLayout is the RFC 2822 date format used in Date and Received headers.
const dateLayout = time.RFC1123Z

// Render serializes msg into its RFC 5322 wire form with CRLF line endings.
// A message without attachments is a multipart/alternative holding a single
// text/plain part; otherwise it is multipart/mixed with the text part first
// and the attachments in order.
func Render(msg *email.Email) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "From", formatFrom(msg.FromName, msg.From))
	writeHeader(&buf, "To", strings.Join(msg.To, ", "))
	if msg.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", msg.ReplyTo)
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&buf, "Date", msg.Date.Format(dateLayout))
	if msg.MessageID != "" {
		writeHeader(&buf, "Message-ID", msg.MessageID)
	}
	if msg.Mailer != "" {
		writeHeader(&buf, "X-Mailer", msg.Mailer)
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	writer := multipart.NewWriter(&buf)
	subtype := "alternative"
	if msg.HasAttachments() {
		subtype = "mixed"
	}
	fmt.Fprintf(&buf, "Content-Type: multipart/%s; boundary=%q\r\n\r\n", subtype, writer.Boundary())

	if err := writeTextPart(writer, msg.TextBody); err != nil {
		return nil, err
	}

	for _, att := range msg.Attachments {
		if err := writeAttachmentPart(writer, att); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), nil
}

// formatFrom builds the From header value. Only the display name is quoted
// or encoded; the address is written exactly as given.
func formatFrom(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", quoteName(name), addr)
}

// quoteName renders a display name as a quoted string, or as an RFC 2047
// encoded word when it contains non-ASCII or control characters.
func quoteName(name string) string {
	for _, r := range name {
		if r > unicode.MaxASCII || r < ' ' || r == 0x7f {
			return mime.QEncoding.Encode("utf-8", name)
		}
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
	return `"` + escaped + `"`
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	fmt.Fprintf(buf, "%s: %s\r\n", key, value)
}

// writeTextPart writes the plain text body as a quoted-printable part.
func writeTextPart(writer *multipart.Writer, body string) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", "text/plain; charset=\"utf-8\"")
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create body part: %w", err)
	}

	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write body part: %w", err)
	}
	if err := qp.Close(); err != nil {
		return fmt.Errorf("failed to write body part: %w", err)
	}
	return nil
}

// writeAttachmentPart writes one base64 encoded attachment part.
func writeAttachmentPart(writer *multipart.Writer, att email.Attachment) error {
	contentType := att.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", contentType)
	header.Set("Content-Transfer-Encoding", "base64")
	header.Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": att.Filename}))

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create attachment part %s: %w", att.Filename, err)
	}

	if _, err := part.Write([]byte(encodeBase64WithLineBreaks(att.Content))); err != nil {
		return fmt.Errorf("failed to write attachment part %s: %w", att.Filename, err)
	}
	return nil
}

// encodeBase64WithLineBreaks encodes bytes to base64 with 76-character line breaks per RFC 2045.
func encodeBase64WithLineBreaks(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	var lines []string
	for i := 0; i < len(encoded); i += 76 {
		end := i + 76
		if end > len(encoded) {
			end = len(encoded)
		}
		lines = append(lines, encoded[i:end])
	}
	return strings.Join(lines, "\r\n")
}
