package cli

import (
	"context"
	"time"
)

func (c *Cli) runProfile(ctx context.Context) error {
	profile, err := c.auth.Profile(ctx)
	if err != nil {
		return err
	}

	c.io.Println("=== Profile ===")
	c.io.Printf("ID: %s\n", profile.ID)
	c.io.Printf("Email: %s\n", profile.Email)
	if profile.Name != "" {
		c.io.Printf("Name: %s\n", profile.Name)
	}
	c.io.Printf("Role: %s\n", profile.Role)
	c.io.Printf("Member since: %s\n", profile.CreatedAt.Format(time.DateOnly))

	return nil
}

func (c *Cli) runRefresh(ctx context.Context) error {
	session, err := c.auth.Refresh(ctx)
	if err != nil {
		return err
	}

	c.io.Println("✓ Session refreshed")
	c.io.Printf("Access token expires: %s\n", session.AccessExpiry().Format(time.RFC3339))
	return nil
}
