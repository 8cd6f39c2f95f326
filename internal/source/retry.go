package source

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Fetch errors fall into two classes: transient ones worth retrying
// (upstream hiccups, rate limiting) and terminal ones where retrying
// only repeats the failure.

type errorClass string

const (
	classTerminal  errorClass = "terminal"
	classTransient errorClass = "transient"
)

func classifyFetchError(err error) errorClass {
	if err == nil {
		return classTerminal
	}
	if errors.Is(err, context.Canceled) {
		return classTerminal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classTransient
	}

	lower := strings.ToLower(err.Error())
	if containsAny(lower, transientMessageTokens) {
		return classTransient
	}
	return classTerminal
}

func containsAny(msg string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

var transientMessageTokens = []string{
	"timeout",
	"timed out",
	"temporar",
	"unavailable",
	"connection reset",
	"connection refused",
	"broken pipe",
	"econnreset",
	"econnrefused",
	"too many requests",
	"rate limit",
	"status 429",
	"status 502",
	"status 503",
	"status 504",
	"server closed idle connection",
}
