// Package cli implements the client commands on top of the session service.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iudanet/edulearn/internal/client/iocli"
	"github.com/iudanet/edulearn/internal/client/storage"
	"github.com/iudanet/edulearn/internal/models"
)

// PasswordEnv provides the login password for scripted use
const PasswordEnv = "EDULEARN_PASSWORD"

// SessionService is what the commands need from the client auth service
type SessionService interface {
	Login(ctx context.Context, email, password string) (*storage.AuthData, error)
	Status(ctx context.Context) (*storage.AuthData, error)
	Refresh(ctx context.Context) (*storage.AuthData, error)
	Profile(ctx context.Context) (*models.UserProfile, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) (int, error)
}

type Cli struct {
	io     iocli.IO
	auth   SessionService
	now    func() time.Time
	getenv func(string) string
}

func New(io iocli.IO, auth SessionService) *Cli {
	return &Cli{
		io:     io,
		auth:   auth,
		now:    time.Now,
		getenv: os.Getenv,
	}
}

// Run executes command with its arguments
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx, args)
	case "refresh":
		return c.runRefresh(ctx)
	case "profile":
		return c.runProfile(ctx)
	case "status":
		return c.runStatus(ctx)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `EduLearn Client

Usage:
  edulearn [OPTIONS] COMMAND

Options:
  -version        Show version information
  -server URL     Server URL (default: http://localhost:8080)
  -db PATH        Path to local session database (default: edulearn-client.db)

Commands:
  login [-email EMAIL]   Login and save the session
  profile                Show the profile of the logged in user
  refresh                Rotate the token pair now
  logout [-all]          Logout (with -all: from every device)
  status                 Show the local session

The password is read from the EDULEARN_PASSWORD environment variable
or prompted without echo.

Examples:
  edulearn login -email student@example.com
  edulearn profile
  edulearn -server https://edulearn.example.com logout -all
`)
}
