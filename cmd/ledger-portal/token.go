// ABOUTME: token and hash-password commands for operator credentials
// ABOUTME: Issues API JWTs from the configured secret and bcrypt hashes for the settings form

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/ledger-portal/internal/auth"
	"github.com/2389/ledger-portal/internal/config"
)

const defaultTokenTTL = 30 * 24 * time.Hour

// runToken issues an API token for the subject named in args.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	ttl := fs.Duration("ttl", defaultTokenTTL, "token lifetime")

	subject, rest := splitSubject(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if subject == "" && fs.NArg() > 0 {
		subject = fs.Arg(0)
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return errors.New("usage: ledger-portal token SUBJECT [--ttl 720h]")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		return errors.New("api.jwt_secret is not configured")
	}

	token, expiresAt, err := issueToken(cfg.API.JWTSecret, subject, *ttl)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(os.Stderr, "  ✓ Token for %s (expires %s)\n", subject, expiresAt.Format("Jan 02, 2006"))
	fmt.Println(token)
	return nil
}

// splitSubject pulls a leading positional subject off args so flags may follow it.
func splitSubject(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func issueToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	verifier, err := auth.NewJWTVerifier([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating JWT verifier: %w", err)
	}
	token, err := verifier.Generate(subject, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating token: %w", err)
	}
	return token, time.Now().Add(ttl).UTC(), nil
}

// runHashPassword reads a password line from r and prints its bcrypt hash.
func runHashPassword(r io.Reader) error {
	fmt.Fprint(os.Stderr, "Settings password: ")
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return fmt.Errorf("reading password: %w", err)
	}

	hash, err := hashPassword(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr)
	fmt.Println(hash)
	return nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
