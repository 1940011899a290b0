package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digitalplanet/shopclient/internal/core/validate"
)

func TestSanitizeBodyDeepCopy(t *testing.T) {
	original := map[string]any{
		"title": "a < b",
		"tags":  []any{"x&y", 3, true, nil},
		"meta":  map[string]any{"quote": `"hi"`},
	}

	out, err := sanitizeBody(original, nil)
	require.NoError(t, err)

	got := out.(map[string]any)
	require.Equal(t, "a &lt; b", got["title"])
	require.Equal(t, []any{"x&amp;y", json.Number("3"), true, nil}, got["tags"])
	require.Equal(t, "&quot;hi&quot;", got["meta"].(map[string]any)["quote"])

	require.Equal(t, "a < b", original["title"])
	require.Equal(t, "x&y", original["tags"].([]any)[0])
}

func TestSanitizeBodyRawFieldsAnyDepth(t *testing.T) {
	raw := map[string]struct{}{"password": {}}
	out, err := sanitizeBody(map[string]any{
		"user": map[string]any{"password": "<p>", "name": "<n>"},
	}, raw)
	require.NoError(t, err)

	user := out.(map[string]any)["user"].(map[string]any)
	require.Equal(t, "<p>", user["password"])
	require.Equal(t, "&lt;n&gt;", user["name"])
}

func TestSanitizeBodyTopLevelString(t *testing.T) {
	out, err := sanitizeBody("<i>", nil)
	require.NoError(t, err)
	require.Equal(t, "&lt;i&gt;", out)
}

func TestSanitizeBodyRejectsUnencodable(t *testing.T) {
	_, err := sanitizeBody(map[string]any{"ch": make(chan int)}, nil)
	require.Error(t, err)

	_, err = sanitizeBody(json.RawMessage(`{`), nil)
	require.Error(t, err)
}

func TestScreenBodySkipsRawFields(t *testing.T) {
	filter := validate.HeuristicFilter{}
	raw := map[string]struct{}{"password": {}}

	result := screenBody(filter, map[string]any{"password": "a'b;c", "note": "ok"}, raw)
	require.True(t, result.Valid)

	result = screenBody(filter, map[string]any{"password": "fine", "note": "drop table"}, raw)
	require.False(t, result.Valid)
	require.Equal(t, []string{"field note contains potential SQL injection"}, result.Errors)
}

func TestScreenBodyNilAndUnencodable(t *testing.T) {
	filter := validate.HeuristicFilter{}
	require.True(t, screenBody(filter, nil, nil).Valid)
	require.True(t, screenBody(filter, map[string]any{"ch": make(chan int)}, nil).Valid)

	result := screenBody(filter, json.RawMessage(`{`), nil)
	require.False(t, result.Valid)
	require.Equal(t, []string{"request body is not valid JSON"}, result.Errors)
}

func TestEncodeBody(t *testing.T) {
	payload, err := encodeBody(nil)
	require.NoError(t, err)
	require.Nil(t, payload)

	payload, err = encodeBody(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(payload))

	payload, err = encodeBody(map[string]any{"a": "b"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":"b"}`, string(payload))
}

func TestParseTokenPair(t *testing.T) {
	access, refresh := parseTokenPair([]byte(`{"token":"A","refreshToken":"R"}`))
	require.Equal(t, "A", access)
	require.Equal(t, "R", refresh)

	access, refresh = parseTokenPair([]byte(`{"accessToken":"A2"}`))
	require.Equal(t, "A2", access)
	require.Equal(t, "", refresh)

	access, _ = parseTokenPair([]byte(`{"data":{"token":"A3"}}`))
	require.Equal(t, "A3", access)

	access, _ = parseTokenPair([]byte(`not json`))
	require.Equal(t, "", access)
}
