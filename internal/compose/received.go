package compose

import (
	"fmt"
	"time"
)

// The relay hop below is fake; the local worker runtime only needs a
// plausible trace line in front of the message.
const (
	receivedFromHost = "smtp.example.com"
	receivedFromIP   = "127.0.0.1"
	receivedByHost   = "cloudflare-email.com"
	receivedQueueID  = "4fwwffRXOpyR"
)

// ReceivedHeader formats the synthetic Received trace for a delivery to rcpt.
func ReceivedHeader(rcpt string, at time.Time) string {
	return fmt.Sprintf("Received: from %s (%s)\r\n"+
		"        by %s (unknown) id %s\r\n"+
		"        for <%s>; %s\r\n",
		receivedFromHost, receivedFromIP,
		receivedByHost, receivedQueueID,
		rcpt, at.Format(dateLayout),
	)
}

// PrependReceived returns raw with the Received trace for rcpt in front.
func PrependReceived(raw []byte, rcpt string, at time.Time) []byte {
	header := ReceivedHeader(rcpt, at)
	out := make([]byte, 0, len(header)+len(raw))
	out = append(out, header...)
	return append(out, raw...)
}
