package output

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// JSONFormatter renders the view value as JSON.
type JSONFormatter struct {
	Indent bool
}

// Format renders view.Value as JSON.
func (f *JSONFormatter) Format(view View) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(view.Value, "", "  ")
	} else {
		data, err = json.Marshal(view.Value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// YAMLFormatter renders the view value as YAML.
type YAMLFormatter struct{}

// Format renders view.Value as YAML. Values are normalized through JSON so
// struct json tags decide the field names.
func (f *YAMLFormatter) Format(view View) (string, error) {
	raw, err := json.Marshal(view.Value)
	if err != nil {
		return "", err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}
