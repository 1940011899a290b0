package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/validate"
)

// normalize converts body into the generic JSON shape (maps, slices,
// strings, json.Number, bools, nil) so string leaves can be visited.
func normalize(body any) (any, error) {
	if body == nil {
		return nil, nil
	}

	var data []byte
	switch v := body.(type) {
	case json.RawMessage:
		data = v
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// screenBody runs filter over every string leaf outside raw fields. A raw
// JSON body that does not parse fails screening; other values that cannot
// be normalized are left to the encoder.
func screenBody(filter validate.Filter, body any, raw map[string]struct{}) core.ValidationResult {
	result := core.Valid()
	value, err := normalize(body)
	if err != nil {
		if _, ok := body.(json.RawMessage); ok {
			return core.Invalid("request body is not valid JSON")
		}
		return result
	}
	if value == nil {
		return result
	}

	walkStrings(value, "", "", raw, func(path, s string) {
		if messages := filter.Check(path, s); len(messages) > 0 {
			result.Merge(core.Invalid(messages...))
		}
	})
	return result
}

// sanitizeBody returns an escaped deep copy of body. The caller's value is
// never modified.
func sanitizeBody(body any, raw map[string]struct{}) (any, error) {
	value, err := normalize(body)
	if err != nil {
		return nil, fmt.Errorf("normalize body: %w", err)
	}
	return sanitizeValue(value, "", raw), nil
}

func sanitizeValue(value any, key string, raw map[string]struct{}) any {
	if _, skip := raw[key]; skip && key != "" {
		return value
	}

	switch v := value.(type) {
	case string:
		return validate.SanitizeHTML(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = sanitizeValue(item, k, raw)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item, key, raw)
		}
		return out
	default:
		return v
	}
}

// walkStrings visits string leaves in a stable order. path is the dotted
// location used in messages; key is the nearest object key.
func walkStrings(value any, path, key string, raw map[string]struct{}, visit func(path, s string)) {
	if _, skip := raw[key]; skip && key != "" {
		return
	}

	switch v := value.(type) {
	case string:
		visit(path, v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			walkStrings(v[k], child, k, raw, visit)
		}
	case []any:
		for i, item := range v {
			walkStrings(item, path+"["+strconv.Itoa(i)+"]", key, raw, visit)
		}
	}
}

func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(body)
	}
}
