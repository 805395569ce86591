package domain

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

var (
	// ErrHostUnreachable marks a failure to resolve or reach the remote host.
	ErrHostUnreachable = errors.New("host unreachable")

	// ErrNoFacts is returned by a local generator with nothing to serve.
	ErrNoFacts = errors.New("no facts available")
)

// IsConnectivity reports whether err is a connectivity-class failure:
// name resolution failed or the host/network is unreachable.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrHostUnreachable) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	// Some resolvers only surface the message text
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}
