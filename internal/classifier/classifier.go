// Package classifier applies the decision rules that turn an HTTP
// response into one of the scan core's terminal provider statuses
// (§4.D). Its blocked-pattern library centralizes the interstitial
// fingerprints providers are tested against in a single detector.
package classifier

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/jmylchreest/usercheck/internal/models"
)

const bodyScanLimit = 512 * 1024 // §4.D: first 512 KiB, case-insensitive

// TransportFailed is a sentinel the caller passes when the request
// itself never produced a response (DNS/TCP/TLS/read timeout).
type TransportFailed struct {
	Err error
}

// Input is the (descriptor, response) pair the classifier decides over.
type Input struct {
	Provider   models.Provider
	StatusCode int // 0 when Transport is set
	Body       []byte
	HasOGTitle bool // extractor-reported: non-empty og:title present
	Transport  *TransportFailed
}

// blockedStatusCodes are the HTTP statuses §4.D treats as blocking
// regardless of body content.
var blockedStatusCodes = map[int]bool{
	http.StatusUnauthorized:     true, // 401
	http.StatusPaymentRequired:  true, // 402
	http.StatusForbidden:        true, // 403
	http.StatusTooManyRequests:  true, // 429
}

var notFoundStatusCodes = map[int]bool{
	http.StatusNotFound: true, // 404
	http.StatusGone:     true, // 410
}

// DefaultBlockedSignals is the centralized list of interstitial body
// fingerprints (§9 open question: "the rewrite should centralize a
// small, documented list and let providers extend it"). Ported from
// the bot-protection detector's cloudflare/captcha/access-denied
// pattern families; the JS-required/SPA-empty-root family is
// deliberately not included here — a presence probe doesn't need full
// rendering the way a content-extraction job does, so it never
// auto-escalates to blocked on its own.
var DefaultBlockedSignals = []string{
	// Cloudflare challenge markers
	"cf-browser-verification",
	"challenge-platform",
	"cf_chl_opt",
	"_cf_chl",
	"checking your browser",
	"please wait... | cloudflare",
	"just a moment...",
	"attention required! | cloudflare",

	// Captcha markers
	"g-recaptcha",
	"grecaptcha",
	"h-captcha",
	"hcaptcha",
	"data-sitekey",
	"captcha-container",
	"turnstile",
	"cf-turnstile",

	// Access-denied / rate-limit text
	"access denied",
	"access to this page has been denied",
	"you don't have permission",
	"request blocked",
	"bot detected",
	"automated access",
	"please verify you are human",
	"are you a robot",
	"prove you're not a robot",
}

// Classify applies the §4.D decision order and returns the terminal
// Status plus a short error string ("rate_limited" for a 429, the
// transport error text, or empty). Building the Result is left to the
// caller.
func Classify(in Input) (models.Status, string) {
	if in.Transport != nil {
		return models.StatusError, in.Transport.Err.Error()
	}

	if blockedStatusCodes[in.StatusCode] {
		if in.StatusCode == http.StatusTooManyRequests {
			return models.StatusBlocked, "rate_limited"
		}
		return models.StatusBlocked, ""
	}

	body := truncate(in.Body, bodyScanLimit)
	bodyLower := strings.ToLower(string(body))

	if matchesProvider(bodyLower, in.Provider.BlockedPatterns, in.Provider.CompiledBlocked(), in.Provider.Regex) ||
		matchesAny(bodyLower, DefaultBlockedSignals, false) {
		return models.StatusBlocked, ""
	}

	if notFoundStatusCodes[in.StatusCode] {
		return models.StatusNotFound, ""
	}
	if matchesProvider(bodyLower, in.Provider.ErrorPatterns, in.Provider.CompiledError(), in.Provider.Regex) {
		return models.StatusNotFound, ""
	}

	if in.StatusCode >= 200 && in.StatusCode <= 299 {
		if matchesProvider(bodyLower, in.Provider.SuccessPatterns, in.Provider.CompiledSuccess(), in.Provider.Regex) {
			return models.StatusFound, ""
		}
		if in.HasOGTitle {
			return models.StatusFound, ""
		}
		if hint := in.Provider.PresenceHint; hint != "" && strings.Contains(bodyLower, strings.ToLower(hint)) {
			return models.StatusFound, ""
		}
		if matchesStatusRules(in.Provider.StatusRules, in.StatusCode) == models.StatusFound {
			return models.StatusFound, ""
		}
	}

	if status := matchesStatusRules(in.Provider.StatusRules, in.StatusCode); status != "" {
		return status, ""
	}

	return models.StatusUnknown, ""
}

func matchesStatusRules(rules []models.StatusRule, code int) models.Status {
	for _, rule := range rules {
		for _, c := range rule.Codes {
			if c == code {
				return rule.Status
			}
		}
	}
	return ""
}

// matchesProvider checks a provider's own patterns, using precompiled
// regexps when the provider is regex-marked (compiled once at registry
// load, per §9) and plain substrings otherwise.
func matchesProvider(bodyLower string, raw []string, compiled []*regexp.Regexp, asRegex bool) bool {
	if asRegex {
		for _, re := range compiled {
			if re.MatchString(bodyLower) {
				return true
			}
		}
		return false
	}
	return matchesAny(bodyLower, raw, false)
}

func matchesAny(bodyLower string, patterns []string, asRegex bool) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if asRegex {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				continue
			}
			if re.MatchString(bodyLower) {
				return true
			}
			continue
		}
		if strings.Contains(bodyLower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

func truncate(body []byte, limit int) []byte {
	if len(body) <= limit {
		return body
	}
	return body[:limit]
}
