package compose

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// NewMessageID returns a fresh RFC 5322 Message-ID scoped to the local host.
func NewMessageID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	host = strings.Trim(host, ".")
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), host)
}
