package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/edulearn/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")

	session, err := c.auth.Status(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Status: Not authenticated")
			c.io.Println("Run 'edulearn login' to authenticate.")
			return nil
		}
		return fmt.Errorf("failed to check authentication: %w", err)
	}

	expiresAt := session.AccessExpiry()
	remaining := expiresAt.Sub(c.now())

	c.io.Println("Status: Authenticated")
	c.io.Printf("Email: %s\n", session.Email)
	c.io.Printf("User ID: %s\n", session.UserID)
	c.io.Printf("Role: %s\n", session.Role)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	if remaining > 0 {
		c.io.Printf("Time remaining: %s\n", remaining.Round(time.Second))
	} else {
		c.io.Println("⚠️  Token has expired. Please login again.")
	}

	return nil
}
