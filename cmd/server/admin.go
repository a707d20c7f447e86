package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/iudanet/edulearn/internal/crypto"
	"github.com/iudanet/edulearn/internal/models"
	"github.com/iudanet/edulearn/internal/validation"
)

// passwordEnv lets scripts pass the password without a terminal
const passwordEnv = "EDULEARN_PASSWORD"

type userAddFlags struct {
	set   *flag.FlagSet
	email *string
	role  *string
	name  *string
}

func newUserAddFlags() *userAddFlags {
	fs := flag.NewFlagSet("useradd", flag.ContinueOnError)
	return &userAddFlags{
		set:   fs,
		email: fs.String("email", "", "user email"),
		role:  fs.String("role", string(models.RoleStudent), "role: ADMIN, TEACHER or STUDENT"),
		name:  fs.String("name", "", "display name"),
	}
}

// userAdd creates a user in the configured user directory
func userAdd(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) error {
	f := newUserAddFlags()
	f.set.SetOutput(stderr)

	// остальные флаги (-d, -db-driver ...) уходят в config.Load
	cfgArgs, err := splitArgs(f.set, args)
	if err != nil {
		return err
	}
	email, role, name := f.email, f.role, f.name

	if err := validation.ValidateEmail(*email); err != nil {
		return err
	}
	r, err := models.ParseRole(*role)
	if err != nil {
		return err
	}

	password, err := readPassword(stdin, stderr)
	if err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	cfg, logger, err := loadConfig(cfgArgs, stderr)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        models.NormalizeEmail(*email),
		Name:         strings.TrimSpace(*name),
		PasswordHash: hash,
		Role:         r,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := st.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	logger.InfoContext(ctx, "user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
		slog.String("role", string(user.Role)),
	)
	fmt.Fprintln(stdout, user.ID)
	return nil
}

// sweep removes refresh token records that expired before now
func sweep(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, logger, err := loadConfig(args, stderr)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.tokens.DeleteExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	logger.InfoContext(ctx, "expired refresh tokens deleted", slog.Int("count", n))
	fmt.Fprintf(stdout, "deleted %d expired refresh tokens\n", n)
	return nil
}

// splitArgs parses the command flags it knows and returns the rest for config.Load
func splitArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var own, rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		name := strings.TrimLeft(a, "-")
		if k, _, ok := strings.Cut(name, "="); ok {
			name = k
		}

		target := &rest
		if fs.Lookup(name) != nil {
			target = &own
		}
		*target = append(*target, a)

		// значение флага отдельным аргументом
		if !strings.Contains(a, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			*target = append(*target, args[i])
		}
	}

	if err := fs.Parse(own); err != nil {
		return nil, err
	}
	return rest, nil
}

func readPassword(stdin *os.File, stderr io.Writer) (string, error) {
	if p, ok := os.LookupEnv(passwordEnv); ok {
		return p, nil
	}

	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no terminal: set " + passwordEnv)
	}

	fmt.Fprint(stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}
