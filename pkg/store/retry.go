// retry.go provides retry logic for transient backend errors.
//
// Under concurrent access (several `rv watch` processes, a cache shared by
// many replays), WAL-mode SQLite can report SQLITE_BUSY, SQLITE_LOCKED and
// IOERR_SHORT_READ (522) even with busy_timeout set, and Redis can report
// LOADING/TRYAGAIN or time out. Both are worth a short retry; anything else
// is returned as-is.
package store

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"
)

// retryConfig controls retry behaviour for transient errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// transientFunc classifies an error as worth retrying.
type transientFunc func(error) bool

// isTransientSQLiteErr matches the contention errors modernc.org/sqlite
// embeds in its messages, by name or by numeric code.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",
		"(6)",
		"(522)",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// isTransientRedisErr matches network timeouts and the server replies
// Redis documents as retryable.
func isTransientRedisErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{"LOADING", "TRYAGAIN", "BUSY", "CLUSTERDOWN", "MASTERDOWN"} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}

// retryOp runs fn until it succeeds, returns a non-transient error, runs
// out of attempts, or ctx is done. Backoff is exponential with jitter.
func retryOp(ctx context.Context, cfg retryConfig, transient transientFunc, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !transient(lastErr) {
			return lastErr
		}
		if attempt == cfg.maxRetries {
			break
		}
		timer := time.NewTimer(backoffDelay(cfg, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// backoffDelay = min(baseDelay * 2^attempt, maxDelay) + rand[0, baseDelay).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay {
		delay = cfg.maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(cfg.baseDelay)))
	return delay + jitter
}
