package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/digitalplanet/shopclient/internal/core"
)

// CredentialStatus summarizes the stored session without exposing tokens.
type CredentialStatus struct {
	Authenticated bool   `json:"authenticated"`
	AccessToken   string `json:"access_token,omitempty"`
	RefreshToken  string `json:"refresh_token,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Identity      string `json:"identity"`
}

// NewCredentialStatus masks creds for display.
func NewCredentialStatus(creds core.Credentials, userID, subject, identity string) CredentialStatus {
	return CredentialStatus{
		Authenticated: creds.HasAccess(),
		AccessToken:   MaskToken(creds.AccessToken),
		RefreshToken:  MaskToken(creds.RefreshToken),
		UserID:        userID,
		Subject:       subject,
		Identity:      identity,
	}
}

// MaskToken keeps the first six characters of token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 10 {
		return "***"
	}
	return token[:6] + "***"
}

// ResponseView renders a decoded response. Objects become key/value rows,
// arrays of objects become one row per element.
func ResponseView(resp *core.Response) View {
	if resp == nil {
		return View{Title: "Response", Value: nil}
	}

	view := View{
		Title:  "Response",
		Footer: responseFooter(resp),
		Value:  resp,
	}

	if !resp.IsJSON() && resp.Data == nil {
		view.Columns = []string{"Body"}
		view.Rows = [][]string{{resp.Text}}
		return view
	}

	payload := resp.Data
	if envelope, ok := payload.(map[string]any); ok {
		if inner, ok := envelope["data"]; ok && len(envelope) <= 3 {
			payload = inner
		}
	}

	switch data := payload.(type) {
	case map[string]any:
		view.Columns = []string{"Field", "Value"}
		for _, key := range sortedKeys(data) {
			view.Rows = append(view.Rows, []string{key, cellValue(data[key])})
		}
	case []any:
		view.Columns, view.Rows = listRows(data)
	default:
		view.Columns = []string{"Value"}
		view.Rows = [][]string{{cellValue(data)}}
	}
	return view
}

// CredentialsView renders a credential summary.
func CredentialsView(status CredentialStatus) View {
	rows := [][]string{
		{"authenticated", fmt.Sprintf("%t", status.Authenticated)},
		{"access_token", orDash(status.AccessToken)},
		{"refresh_token", orDash(status.RefreshToken)},
		{"user_id", orDash(status.UserID)},
		{"subject", orDash(status.Subject)},
		{"identity", status.Identity},
	}
	return View{Title: "Session", Columns: []string{"Field", "Value"}, Rows: rows, Value: status}
}

// ValidationReport is the machine-readable result of a local check.
type ValidationReport struct {
	Check  string   `json:"check"`
	Value  string   `json:"value"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationView renders a validation result.
func ValidationView(check, value string, result core.ValidationResult) View {
	report := ValidationReport{Check: check, Value: value, Valid: result.Valid, Errors: result.Errors}
	view := View{
		Title:   "Validation",
		Columns: []string{"Check", "Valid", "Errors"},
		Value:   report,
	}
	view.Rows = [][]string{{check, fmt.Sprintf("%t", result.Valid), orDash(strings.Join(result.Errors, "; "))}}
	return view
}

// RateLimitView renders limiter windows.
func RateLimitView(states []core.RateLimitState) View {
	view := View{
		Title:   "Rate Limits",
		Columns: []string{"Identifier", "Count", "Oldest", "Newest"},
		Value:   states,
	}
	if states == nil {
		view.Value = []core.RateLimitState{}
	}
	for _, state := range states {
		view.Rows = append(view.Rows, []string{
			state.Identifier,
			fmt.Sprintf("%d", state.Count),
			formatTime(state.Oldest),
			formatTime(state.Newest),
		})
	}
	return view
}

// KeyValue is a stored entry as displayed.
type KeyValue struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// EntriesView renders stored keys.
func EntriesView(title string, entries []KeyValue) View {
	view := View{
		Title:   title,
		Columns: []string{"Key", "Value", "Updated"},
		Value:   entries,
	}
	if entries == nil {
		view.Value = []KeyValue{}
	}
	for _, entry := range entries {
		view.Rows = append(view.Rows, []string{entry.Key, entry.Value, formatTime(entry.UpdatedAt)})
	}
	return view
}

func responseFooter(resp *core.Response) string {
	footer := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if resp.RequestID != "" {
		footer += " request " + resp.RequestID
	}
	return footer
}

func listRows(items []any) ([]string, [][]string) {
	columnSet := map[string]struct{}{}
	objects := true
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			objects = false
			break
		}
		for key := range obj {
			columnSet[key] = struct{}{}
		}
	}

	if !objects || len(columnSet) == 0 {
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			rows = append(rows, []string{cellValue(item)})
		}
		return []string{"Value"}, rows
	}

	columns := make([]string, 0, len(columnSet))
	for key := range columnSet {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		obj := item.(map[string]any)
		row := make([]string, len(columns))
		for i, column := range columns {
			if value, ok := obj[column]; ok {
				row[i] = cellValue(value)
			}
		}
		rows = append(rows, row)
	}
	return columns, rows
}

func cellValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		return v
	case json.Number:
		return v.String()
	case bool, float64, int, int64:
		return fmt.Sprint(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
