package email

import (
	"context"
	"log"

	"github.com/goliatone/go-identity"
)

// ConsoleDispatcher is a development implementation that logs verification
// emails instead of sending them.
type ConsoleDispatcher struct{}

var _ identity.EmailDispatcher = (*ConsoleDispatcher)(nil)

func (c *ConsoleDispatcher) SendVerificationEmail(_ context.Context, to, token string) error {
	log.Printf("\n=== EMAIL: Verification ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Verify your account")
	log.Printf("Body: your verification code is %s", token)
	log.Printf("===========================\n")
	return nil
}
