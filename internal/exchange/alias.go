package exchange

import "strings"

func sanitizeTokenID(id string) string {
	id = strings.TrimSpace(id)
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ShortToken abbreviates the long decimal token ids for log lines and prompts.
func ShortToken(id string) string {
	id = sanitizeTokenID(id)
	if id == "" {
		return "TOKEN"
	}
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}
