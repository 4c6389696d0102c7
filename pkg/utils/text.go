package utils

// TruncateRunes shortens s to at most max runes, appending an ellipsis
// when anything was cut. Safe on multi-byte text.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
