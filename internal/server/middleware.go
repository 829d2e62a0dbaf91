package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chorus/internal/shared"
)

// replayWindow is the maximum age of a signed request before it is rejected.
const replayWindow = 5 * time.Minute

// LoggingMiddleware logs each request with method, path, and duration.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(started))
		})
	}
}

// SignatureMiddleware verifies the Slack request signature (v0 scheme):
// HMAC-SHA256 of "v0:<timestamp>:<body>" keyed with the signing secret,
// compared against the X-Slack-Signature header. Requests older than the
// replay window are rejected.
//
// An empty secret disables verification; intended for local development only.
func SignatureMiddleware(signingSecret string, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if signingSecret == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ts := r.Header.Get("X-Slack-Request-Timestamp")
			if !timestampFresh(ts, time.Now()) {
				logger.Warn("rejected stale request", "timestamp", ts)
				http.Error(w, shared.ErrStaleRequest.Error(), http.StatusUnauthorized)
				return
			}

			expected := Sign(signingSecret, ts, body)
			given := r.Header.Get("X-Slack-Signature")
			if !hmac.Equal([]byte(expected), []byte(given)) {
				logger.Warn("rejected bad signature", "path", r.URL.Path)
				http.Error(w, shared.ErrInvalidSignature.Error(), http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Sign computes the v0 request signature for a timestamp and body.
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

// timestampFresh reports whether a unix-seconds header value is inside the replay window.
func timestampFresh(header string, now time.Time) bool {
	seconds, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return false
	}

	age := now.Sub(time.Unix(seconds, 0))
	if age < 0 {
		age = -age
	}
	return age <= replayWindow
}
