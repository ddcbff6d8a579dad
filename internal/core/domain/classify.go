package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// UpstreamResponse is the minimal view of an upstream HTTP exchange the
// classifier needs: the status code and the raw body. Transport failures
// (no response at all) are represented by the error passed alongside.
type UpstreamResponse struct {
	Status int
	Body   []byte
}

// Classify maps an upstream exchange to a structured error, or nil when the
// exchange is a success. Pure and deterministic: no I/O, first matching rule
// wins.
//
// A 2xx status is authoritative: the body is never inspected for error-looking
// text. Transport errors are split into timeout vs. network before any status
// rule because there is no status to look at.
func Classify(resp *UpstreamResponse, err error) *ErrorDetail {
	if err != nil {
		if isDeadlineError(err) {
			return NewError(KindTimeout, "request exceeded the caller's deadline", map[string]any{"cause": err.Error()})
		}
		return NewError(KindNetwork, "could not reach the upstream service", map[string]any{"cause": err.Error()})
	}
	if resp == nil {
		return NewError(KindNetwork, "no response received", nil)
	}

	switch {
	case resp.Status >= 200 && resp.Status <= 299:
		return nil
	case resp.Status == 404:
		return NewError(KindNotFound, "upstream resource not found", map[string]any{"status_code": resp.Status})
	case resp.Status == 401 || resp.Status == 403:
		return NewError(KindPermissionDenied, "upstream rejected credentials", map[string]any{"status_code": resp.Status})
	case resp.Status == 429:
		return NewError(KindRateLimited, "upstream rate limit exceeded", map[string]any{"status_code": resp.Status})
	case resp.Status >= 500:
		return NewError(KindUpstreamInternal, fmt.Sprintf("upstream returned HTTP %d", resp.Status), map[string]any{"status_code": resp.Status})
	default:
		// Remaining 4xx statuses are caller-side problems.
		return NewError(KindValidation, fmt.Sprintf("upstream rejected the request with HTTP %d", resp.Status), map[string]any{"status_code": resp.Status})
	}
}

func isDeadlineError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// disallowedPunct is the full-width punctuation set known to break the
// upstream query parser.
const disallowedPunct = "、。「」【】《》，；：？！"

// CheckQuery rejects queries containing control characters or the disallowed
// full-width punctuation, before any network call is made. Returns nil when
// the query is safe to send.
func CheckQuery(query string) *ErrorDetail {
	var offending []string
	seen := map[rune]bool{}
	for _, r := range query {
		if seen[r] {
			continue
		}
		if r < 0x20 || r == 0x7F || strings.ContainsRune(disallowedPunct, r) {
			seen[r] = true
			offending = append(offending, fmt.Sprintf("%q", r))
		}
	}
	if len(offending) == 0 {
		return nil
	}
	return NewError(KindValidation, "query contains characters the upstream parser cannot handle", map[string]any{
		"offending_chars": offending,
	})
}
