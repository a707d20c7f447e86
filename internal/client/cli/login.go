package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "user email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Login ===")

	if *email == "" {
		in, err := c.io.ReadInput("Email: ")
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		*email = in
	}

	password := c.getenv(PasswordEnv)
	if password == "" {
		p, err := c.io.ReadPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = p
	}

	auth, err := c.auth.Login(ctx, *email, password)
	if err != nil {
		return err
	}

	c.io.Println("✓ Login successful!")
	c.io.Printf("Email: %s\n", auth.Email)
	c.io.Printf("Role: %s\n", auth.Role)
	c.io.Printf("Access token expires: %s\n", auth.AccessExpiry().Format(time.RFC3339))

	return nil
}
