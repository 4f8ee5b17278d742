package preprocess

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

var (
	emailPattern      = regexp.MustCompile(`\S+@\S+`)
	urlPattern        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	specialChars      = regexp.MustCompile("[^\\w\\s.:!?@#$%&*()+=\\-\\[\\]{};'\",<>/|\\\\`~_^]")
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// timezoneKeywords maps timezone abbreviations to phrases that hint at
// them. Ordered so repeated extraction is deterministic.
var timezoneKeywords = []struct {
	zone     string
	keywords []string
}{
	{"EST", []string{"new york", "eastern", "est", "edt"}},
	{"PST", []string{"california", "pacific", "pst", "pdt", "los angeles"}},
	{"GMT", []string{"london", "uk", "gmt", "utc", "england"}},
	{"CET", []string{"berlin", "paris", "cet", "cest", "europe"}},
	{"JST", []string{"japan", "tokyo", "jst"}},
	{"IST", []string{"india", "mumbai", "delhi", "ist"}},
}

// Processor normalizes raw text before it is sent for inference
type Processor struct {
	logger *zap.Logger
}

// NewProcessor creates a new text processor
func NewProcessor(logger *zap.Logger) *Processor {
	return &Processor{logger: logger}
}

// Normalize cleans text and truncates it to maxLen bytes. Addresses and
// URLs are masked so they do not skew classification.
func (p *Processor) Normalize(text string, maxLen int) string {
	cleaned := emailPattern.ReplaceAllString(text, "[EMAIL]")
	cleaned = urlPattern.ReplaceAllString(cleaned, "[URL]")
	cleaned = specialChars.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	return p.Truncate(cleaned, maxLen)
}

// Truncate safely truncates text to the specified maximum byte size and
// ensures the result is valid UTF-8
func (p *Processor) Truncate(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	p.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated
}

// ExtractTimezone guesses a timezone from keywords in the text. Returns
// an empty string when nothing matches.
func (p *Processor) ExtractTimezone(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range timezoneKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.zone
			}
		}
	}
	return ""
}

// SanitizeUTF8 replaces invalid UTF-8 sequences so downstream JSON
// encoding never fails
func (p *Processor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "")
}
