package remote

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/engine"
)

// Classify maps a failed remote call to exactly one disposition. It is total:
// every error lands somewhere, and anything unrecognized defaults to
// retryable so the retry cap (not the classifier) decides when to give up.
func Classify(err error) engine.Disposition {
	if err == nil {
		return engine.DispositionRetryable
	}

	if errors.Is(err, ErrBadPayload) || errors.Is(err, ErrUnhandledKind) {
		return engine.DispositionFatal
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return classifyAPI(apiErr)
	}

	if isOffline(err) {
		return engine.DispositionOffline
	}

	return engine.DispositionRetryable
}

func classifyAPI(apiErr *APIError) engine.Disposition {
	switch apiErr.Code {
	case CodeDuplicate:
		return engine.DispositionDuplicate
	case CodeMissingParent:
		return engine.DispositionMissingDependency
	}

	switch {
	case apiErr.StatusCode == 409:
		// Uniqueness conflict without a code still means "already there".
		return engine.DispositionDuplicate
	case apiErr.StatusCode == 422:
		return engine.DispositionMissingDependency
	case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
		return engine.DispositionRetryable
	case apiErr.StatusCode >= 400:
		// 400/401/403/404/413...: repeating the identical request cannot help.
		return engine.DispositionFatal
	default:
		return engine.DispositionRetryable
	}
}

func isOffline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection refused, DNS failure, unreachable host.
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
