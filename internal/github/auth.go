package github

import (
	"errors"
	"os"
	"os/exec"
	"strings"
)

// ErrNoToken means no usable GitHub credential could be resolved.
var ErrNoToken = errors.New("no GitHub token: set SOBA_GITHUB_TOKEN/GITHUB_TOKEN or log in with gh")

// Environment variables checked by the env auth method, in order.
var tokenEnvVars = []string{"SOBA_GITHUB_TOKEN", "GITHUB_TOKEN"}

// ResolveToken resolves a GitHub API token for the given auth method:
// "gh" delegates to the gh CLI, "env" reads environment variables, and
// empty tries gh first and falls back to env.
func ResolveToken(method string) (string, error) {
	switch method {
	case "gh":
		return tokenFromGH()
	case "env":
		return tokenFromEnv()
	default:
		if token, err := tokenFromGH(); err == nil {
			return token, nil
		}
		return tokenFromEnv()
	}
}

// tokenFromGH asks the local gh CLI for its stored token.
func tokenFromGH() (string, error) {
	out, err := exec.Command("gh", "auth", "token").Output()
	if err != nil {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// tokenFromEnv reads the first non-empty token environment variable.
func tokenFromEnv() (string, error) {
	for _, name := range tokenEnvVars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}
