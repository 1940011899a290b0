package validate

import (
	"regexp"
)

// Filter flags suspicious string values before a request is sent.
type Filter interface {
	// Check returns one message per detected risk, or nil.
	Check(field, value string) []string
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)('|(\-\-)|(;)|(\|)|(\*)|(%))`),
	regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|execute)`),
}

var xssPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<iframe[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// DetectSQLInjectionRisk is a heuristic. False positives on ordinary text
// such as "update" or "50%" are expected.
func DetectSQLInjectionRisk(value string) bool {
	return matchesAny(sqlInjectionPatterns, value)
}

// DetectXSSRisk is a heuristic. Obfuscated payloads are not detected.
func DetectXSSRisk(value string) bool {
	return matchesAny(xssPatterns, value)
}

// HeuristicFilter applies DetectSQLInjectionRisk and DetectXSSRisk.
//
// With AllowEscapableMarkup set, markup that SanitizeHTML neutralizes (script
// and iframe tags) is let through because the value is escaped before it is
// sent; risks that survive escaping, such as javascript: URLs, still fail.
type HeuristicFilter struct {
	DisableSQL           bool
	DisableXSS           bool
	AllowEscapableMarkup bool
}

// Check implements Filter.
func (f HeuristicFilter) Check(field, value string) []string {
	var messages []string
	if !f.DisableSQL && DetectSQLInjectionRisk(value) {
		messages = append(messages, fieldLabel(field)+" contains potential SQL injection")
	}
	if !f.DisableXSS && f.xssRisk(value) {
		messages = append(messages, fieldLabel(field)+" contains potential XSS payload")
	}
	return messages
}

func (f HeuristicFilter) xssRisk(value string) bool {
	if !DetectXSSRisk(value) {
		return false
	}
	if f.AllowEscapableMarkup {
		return DetectXSSRisk(SanitizeHTML(value))
	}
	return true
}

// NopFilter accepts every value.
type NopFilter struct{}

// Check implements Filter.
func (NopFilter) Check(string, string) []string { return nil }

func matchesAny(patterns []*regexp.Regexp, value string) bool {
	for _, p := range patterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

func fieldLabel(field string) string {
	if field == "" {
		return "value"
	}
	return "field " + field
}
