package fetch

import (
	"errors"
	"strings"
)

// ErrDomainUnreachable marks DNS, connection-refused and similar
// network failures. It aborts the whole site scan and is never retried.
var ErrDomainUnreachable = errors.New("domain unreachable")

// unreachableTokens are substrings that identify a dead domain in
// error messages from either the HTTP client or the browser.
var unreachableTokens = []string{
	// browser-side tokens
	"err_name_not_resolved",
	"err_connection_refused",
	"err_connection_reset",
	"err_connection_timed_out",
	"err_network_changed",
	"err_internet_disconnected",
	"err_address_unreachable",
	// http-client analogues
	"no such host",
	"name or service not known",
	"getaddrinfo failed",
	"connection refused",
	"network is unreachable",
	"[errno 111]",
	"[winerror 10061]",
}

// IsUnreachable reports whether err (or its message) identifies a dead
// domain rather than a transient failure.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDomainUnreachable) {
		return true
	}
	return MessageIsUnreachable(err.Error())
}

// MessageIsUnreachable matches a raw error message against the
// network-unreachable token catalogue.
func MessageIsUnreachable(msg string) bool {
	msg = strings.ToLower(msg)
	for _, tok := range unreachableTokens {
		if strings.Contains(msg, tok) {
			return true
		}
	}
	return false
}
