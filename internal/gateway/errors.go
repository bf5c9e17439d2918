package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"piston_control/internal/models"
)

// ErrorKind classifies a failed call before any HTTP status was received.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindUnreachable
	KindTimeout
	KindIO
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindTimeout:
		return "timeout"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// User-facing messages for transport failures.
const (
	MsgUnreachable   = "Cannot reach the server. Check the address and your connection."
	MsgTimeout       = "The server took too long to respond. Please try again."
	MsgIO            = "Network error. Check your internet connection."
	MsgUnknownPrefix = "Unexpected error: "
	MsgEmptyResponse = "empty response"
	MsgBadResponse   = "invalid response from server"
)

// Classify maps a transport error onto an ErrorKind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return KindUnreachable
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindUnreachable
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return KindIO
	}
	if errors.As(err, &netErr) {
		return KindIO
	}
	return KindUnknown
}

// HumanMessage turns a transport error into text fit for a toast.
func HumanMessage(err error) string {
	switch Classify(err) {
	case KindUnreachable:
		return MsgUnreachable
	case KindTimeout:
		return MsgTimeout
	case KindIO:
		return MsgIO
	default:
		if errors.Is(err, context.Canceled) {
			return MsgUnknownPrefix + "request cancelled"
		}
		return MsgUnknownPrefix + err.Error()
	}
}

// httpErrorMessage extracts the server message from a non-2xx body, falling
// back to "HTTP <code>".
func httpErrorMessage(code int, body []byte) string {
	var e models.ErrorResponse
	if len(body) > 0 && json.Unmarshal(body, &e) == nil {
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(e.Error); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d", code)
}
