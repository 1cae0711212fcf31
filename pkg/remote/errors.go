package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/openfroyo/agentcore/pkg/engine"
)

func notFound(backend, key string) error {
	return engine.NewNotFoundError(key, "remote document not found").
		WithCode(engine.ErrCodeRemoteNotFound).
		WithOperation(backend + ".get")
}

// wrapError turns a backend failure into an adapter error.
func wrapError(backend, op, key string, err error) error {
	if err == nil {
		return nil
	}
	e := engine.NewAdapterError(fmt.Sprintf("%s %s failed", backend, op), err).
		WithResource(key).
		WithOperation(backend + "." + op)
	if code := classify(err); code != "" {
		e = e.WithCode(code)
	}
	return e
}

// classify maps an error to PERMISSION_DENIED, THROTTLED or NETWORK. It
// returns "" when the cause is unknown.
func classify(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if code := classifyMessage(apiErr.ErrorCode()); code != "" {
			return code
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return engine.ErrCodeNetwork
	}
	return classifyMessage(err.Error())
}

func classifyMessage(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case containsAny(lower, permissionKeywords):
		return engine.ErrCodePermissionDenied
	case containsAny(lower, throttleKeywords):
		return engine.ErrCodeThrottled
	case containsAny(lower, networkKeywords):
		return engine.ErrCodeNetwork
	}
	return ""
}

var (
	permissionKeywords = []string{
		"accessdenied", "access denied", "unauthorized",
		"not authorized", "forbidden", "noauth", "wrongpass",
	}
	throttleKeywords = []string{
		"throttl", "toomanyupdates", "slowdown", "rate exceeded",
		"requestlimitexceeded",
	}
	networkKeywords = []string{
		"connection refused", "no such host", "dial tcp",
		"tls handshake", "i/o timeout", "connection reset",
	}
)

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
