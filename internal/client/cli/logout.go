package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
)

func (c *Cli) runLogout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	all := fs.Bool("all", false, "logout from every device")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Logout ===")

	if *all {
		n, err := c.auth.LogoutAll(ctx)
		if err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		c.io.Printf("✓ Logged out everywhere, %d session(s) closed.\n", n)
		return nil
	}

	if err := c.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
