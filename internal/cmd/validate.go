package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/digitalplanet/shopclient/internal/core"
	"github.com/digitalplanet/shopclient/internal/core/validate"
	"github.com/digitalplanet/shopclient/internal/output"
)

var validateFailOnInvalid bool

// validators are the local checks exposed by the validate command.
var validators = map[string]func(string) core.ValidationResult{
	"email":    validate.Email,
	"password": validate.Password,
	"username": validate.Username,
	"amount":   validate.Amount,
	"phone":    validate.Phone,
}

var validateCmd = &cobra.Command{
	Use:   "validate <check> <value>",
	Short: "Run a local input check without calling the storefront",
	Long: fmt.Sprintf(`Run a local input check. Checks: %s, text.

"text" applies the request screening filter (SQL and XSS heuristics) with the
configured security settings, and also prints the escaped form that would be sent.`,
		strings.Join(validatorNames(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		check := strings.ToLower(strings.TrimSpace(args[0]))
		value := args[1]

		var result core.ValidationResult
		if check == "text" {
			cfg, err := currentConfig(cmd)
			if err != nil {
				return err
			}
			result = screenText(newFilter(cfg.Security), value)
		} else {
			fn, ok := validators[check]
			if !ok {
				return fmt.Errorf("unknown check %q (use %s, text)", args[0], strings.Join(validatorNames(), ", "))
			}
			result = fn(strings.TrimSpace(value))
		}

		view := output.ValidationView(check, value, result)
		if check == "text" {
			view.Footer = "Escaped: " + validate.SanitizeHTML(value)
		}
		if err := render(cmd, "validate-"+check, view); err != nil {
			return err
		}
		if validateFailOnInvalid && !result.Valid {
			return fmt.Errorf("%s check failed: %s", check, strings.Join(result.Errors, "; "))
		}
		return nil
	},
}

func screenText(filter validate.Filter, value string) core.ValidationResult {
	if messages := filter.Check("value", value); len(messages) > 0 {
		return core.Invalid(messages...)
	}
	return core.Valid()
}

func validatorNames() []string {
	names := make([]string, 0, len(validators))
	for name := range validators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	validateCmd.Flags().BoolVar(&validateFailOnInvalid, "fail", false, "Exit non-zero when the value is invalid")
	addOutputFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
