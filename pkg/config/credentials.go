package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/meridian-ops/drverify/pkg/types"
)

// Environment variables consulted when credentials are not passed as flags
const (
	EnvUsername = "DRVERIFY_USERNAME"
	EnvPassword = "DRVERIFY_PASSWORD"
)

// Credentials authenticate against the clusters' management interface
type Credentials struct {
	Username string
	Password string
}

// ResolveCredentials resolves management credentials with the precedence
// flag > environment > interactive prompt. The prompt is only offered when
// stdin is a terminal; otherwise missing credentials are a ConfigError.
func ResolveCredentials(flagUser, flagPass string) (Credentials, error) {
	creds := Credentials{Username: flagUser, Password: flagPass}

	if creds.Username == "" {
		creds.Username = os.Getenv(EnvUsername)
	}
	if creds.Password == "" {
		creds.Password = os.Getenv(EnvPassword)
	}

	if creds.Username == "" {
		return creds, &types.ConfigError{Reason: fmt.Sprintf("management username not set (flag or %s)", EnvUsername)}
	}

	if creds.Password == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return creds, &types.ConfigError{Reason: fmt.Sprintf("management password not set (flag or %s) and stdin is not a terminal", EnvPassword)}
		}
		fmt.Fprintf(os.Stderr, "Password for %s: ", creds.Username)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return creds, &types.ConfigError{Reason: "read password from terminal", Err: err}
		}
		creds.Password = strings.TrimSpace(string(raw))
		if creds.Password == "" {
			return creds, &types.ConfigError{Reason: "empty password"}
		}
	}

	return creds, nil
}
