package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	valid := []string{"user@example.com", "first.last+tag@shop.example.cn"}
	for _, value := range valid {
		assert.True(t, Email(value).Valid, value)
	}

	// 243 + len("@example.cn") = 254 characters, over 255 bytes.
	assert.True(t, Email(strings.Repeat("é", 243)+"@example.cn").Valid)

	invalid := []string{"", "user", "user@", "user@example", "us er@example.com", "user@exa mple.com", strings.Repeat("a", 250) + "@example.com"}
	for _, value := range invalid {
		result := Email(value)
		assert.False(t, result.Valid, value)
		assert.Len(t, result.Errors, 1, value)
	}
}

func TestPasswordReportsFirstFailingRule(t *testing.T) {
	cases := []struct {
		name     string
		value    string
		contains string
	}{
		{"Length", "aB1@", "at least 8"},
		{"LengthBeforeEverything", "short", "at least 8"},
		{"Lowercase", "ABCDEFG1@", "lowercase"},
		{"LowercaseBeforeDigit", "ABCDEFGH", "lowercase"},
		{"Uppercase", "abcdefg1@", "uppercase"},
		{"Digit", "abcdEFGH@", "digit"},
		{"Symbol", "abcdEFG12", "special character"},
		{"MaxLength", "aB1@" + strings.Repeat("x", 130), "at most 128"},
		{"LengthCountsCharacters", "Ab1@中中中", "at least 8"},
		{"LengthCountsAccentedCharacters", "Ab1@ééé", "at least 8"},
		{"MaxLengthCountsCharacters", "Ab1@" + strings.Repeat("中", 125), "at most 128"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Password(tc.value)
			require.False(t, result.Valid)
			require.Len(t, result.Errors, 1)
			require.Contains(t, result.Errors[0], tc.contains)
		})
	}

	require.True(t, Password("Passw0rd!").Valid)
	require.True(t, Password("Zz9&zzzz").Valid)
	require.True(t, Password("Ab1@"+strings.Repeat("中", 50)).Valid)
	require.True(t, Password("Ab1@"+strings.Repeat("中", 124)).Valid)
}

func TestPasswordMatchesRuleConjunction(t *testing.T) {
	alphabet := []string{"a", "B", "3", "@", "x", "Y", "7", "%"}
	// Every string of 4 to 9 characters over a small alphabet.
	var walk func(prefix string, depth int)
	walk = func(prefix string, depth int) {
		expected := len(prefix) >= 8 &&
			strings.ContainsAny(prefix, "abcdefghijklmnopqrstuvwxyz") &&
			strings.ContainsAny(prefix, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
			strings.ContainsAny(prefix, "0123456789") &&
			strings.ContainsAny(prefix, PasswordSymbols)
		require.Equal(t, expected, Password(prefix).Valid, prefix)
		if depth == 0 {
			return
		}
		for _, ch := range alphabet {
			walk(prefix+ch, depth-1)
		}
	}
	walk("aaaa", 5)
}

func TestUsername(t *testing.T) {
	assert.True(t, Username("abc").Valid)
	assert.True(t, Username("user_01").Valid)
	assert.True(t, Username("数字星球").Valid)
	assert.True(t, Username(strings.Repeat("a", 20)).Valid)

	assert.False(t, Username("ab").Valid)
	assert.False(t, Username(strings.Repeat("a", 21)).Valid)
	assert.False(t, Username("user-01").Valid)
	assert.False(t, Username("user name").Valid)
	assert.False(t, Username("ユーザー名").Valid)
}

func TestAmount(t *testing.T) {
	for _, value := range []string{"1", "0.01", "19.9", "999999.99", " 42.00 ", ".5", ".05"} {
		assert.True(t, Amount(value).Valid, value)
	}
	for _, value := range []string{"0", "0.00", "-1", "1000000", "999999.991", "1.234", "abc", "", "1e3", ".", "1.", ".123", ".00"} {
		assert.False(t, Amount(value).Valid, value)
	}
}

func TestPhone(t *testing.T) {
	assert.True(t, Phone("13812345678").Valid)
	assert.False(t, Phone("12812345678").Valid)
	assert.False(t, Phone("1381234567").Valid)
}

func TestSanitizeHTML(t *testing.T) {
	require.Equal(t, "&lt;script&gt;x&lt;&#x2F;script&gt;", SanitizeHTML("<script>x</script>"))
	require.Equal(t, "&amp;&lt;&gt;&quot;&#x27;&#x2F;", SanitizeHTML(`&<>"'/`))
	require.NotContains(t, SanitizeHTML("<b>"), "&amp;lt;")

	for _, value := range []string{"", "plain text", "数字星球 order 42", "a-b_c.d"} {
		once := SanitizeHTML(value)
		require.Equal(t, once, SanitizeHTML(once), value)
	}
}

func TestHeuristicDetectors(t *testing.T) {
	assert.True(t, DetectSQLInjectionRisk("1' OR '1'='1"))
	assert.True(t, DetectSQLInjectionRisk("x; DROP TABLE users"))
	assert.True(t, DetectSQLInjectionRisk("please update my order"))
	assert.False(t, DetectSQLInjectionRisk("blue hoodie size M"))

	assert.True(t, DetectXSSRisk("<script>alert(1)</script>"))
	assert.True(t, DetectXSSRisk("<IFRAME src=x></iframe>"))
	assert.True(t, DetectXSSRisk("javascript:alert(1)"))
	assert.True(t, DetectXSSRisk(`<img src=x onerror = "alert(1)">`))
	assert.False(t, DetectXSSRisk("gift wrap please"))
}

func TestHeuristicFilter(t *testing.T) {
	strict := HeuristicFilter{}
	require.Len(t, strict.Check("note", "<script>x</script>"), 1)
	require.Contains(t, strict.Check("note", "<script>x</script>")[0], "field note")

	lenient := HeuristicFilter{AllowEscapableMarkup: true}
	require.Empty(t, lenient.Check("note", "<script>x</script>"))
	require.Len(t, lenient.Check("link", "javascript:alert(1)"), 1)
	require.Len(t, lenient.Check("", "'; select"), 1)

	require.Empty(t, HeuristicFilter{DisableSQL: true, DisableXSS: true}.Check("x", "<script>'</script>"))
	require.Empty(t, NopFilter{}.Check("x", "<script>'</script>"))
}
