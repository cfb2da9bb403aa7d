package utils

import "strings"

// ToStringSlice keeps the non-empty strings of a decoded JSON array.
// Anything that is not an array gives nil.
func ToStringSlice(v any) []string {
	slice, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(slice))
	for _, item := range slice {
		if s, ok := item.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func Ptr[T any](v T) *T {
	return &v
}
