// Package masking redacts personal data before it is written to the audit trail.
package masking

import "strings"

const maskToken = "****"

// sensitiveKeys hold partner identifiers that must not be stored verbatim.
var sensitiveKeys = map[string]bool{
	"tax_id":  true,
	"address": true,
}

// MaskValue keeps the last four characters of value.
func MaskValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return maskToken
	}
	return maskToken + string(runes[len(runes)-4:])
}

// MaskMetadata returns a copy of input with sensitive string values masked.
// Nested maps are masked recursively.
func MaskMetadata(input map[string]any) map[string]any {
	masked := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		switch cast := value.(type) {
		case map[string]any:
			masked[key] = MaskMetadata(cast)
		case string:
			if sensitiveKeys[key] {
				masked[key] = MaskValue(cast)
			} else {
				masked[key] = cast
			}
		case *string:
			if cast == nil {
				masked[key] = nil
			} else if sensitiveKeys[key] {
				masked[key] = MaskValue(*cast)
			} else {
				masked[key] = *cast
			}
		default:
			masked[key] = value
		}
	}
	return masked
}
