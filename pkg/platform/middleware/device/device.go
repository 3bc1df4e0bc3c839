package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"jojo/pkg/requestcontext"
)

// Device derives a human readable device label from the User-Agent captured by
// the metadata middleware and stores it for audit attribution.
// It must be registered after metadata.Middleware.Handler.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if label := Label(requestcontext.UserAgent(ctx)); label != "" {
			ctx = requestcontext.WithDevice(ctx, label)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Label returns "Browser on OS" (e.g. "Chrome on macOS", "Safari on iPhone").
// Returns "" for an empty User-Agent.
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}

	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}
