package workflow

import (
	"errors"
	"net"
	"net/url"

	"github.com/douhashi/soba/internal/github"
	"github.com/douhashi/soba/internal/lock"
	"github.com/douhashi/soba/internal/tmux"
)

// Kind is the closed set of error outcomes the control loop dispatches on.
type Kind int

const (
	KindUnexpected Kind = iota
	KindConfig
	KindAuth
	KindRateLimited
	KindNetwork
	KindMergeConflict
	KindMultiplexerMissing
	KindLockTimeout
)

// String returns the kind name used in logs and status output.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network"
	case KindMergeConflict:
		return "merge_conflict"
	case KindMultiplexerMissing:
		return "multiplexer_missing"
	case KindLockTimeout:
		return "lock_timeout"
	default:
		return "unexpected"
	}
}

// Classify sorts an error into the taxonomy. The loop's policy per kind:
// auth is fatal for the tick, rate-limited sleeps until reset, network and
// everything non-fatal just logs and the next tick retries.
func Classify(err error) Kind {
	if err == nil {
		return KindUnexpected
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return KindRateLimited
	}
	var mergeErr *github.MergeConflictError
	if errors.As(err, &mergeErr) {
		return KindMergeConflict
	}
	if errors.Is(err, tmux.ErrNotInstalled) {
		return KindMultiplexerMissing
	}
	if errors.Is(err, lock.ErrTimeout) {
		return KindLockTimeout
	}
	if errors.Is(err, github.ErrNoToken) {
		return KindAuth
	}

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401 || apiErr.StatusCode == 403:
			return KindAuth
		case apiErr.StatusCode == 429:
			return KindRateLimited
		case apiErr.StatusCode >= 500:
			return KindNetwork
		}
		return KindUnexpected
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return KindNetwork
	}

	return KindUnexpected
}
