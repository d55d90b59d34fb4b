package automation

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Interpolate replaces every {{key}} in template with the matching value
// from vars. Missing keys and nil values become the empty string.
func Interpolate(template string, vars map[string]interface{}) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := vars[key]
		if !ok || value == nil {
			return ""
		}
		return fmt.Sprint(value)
	})
}
