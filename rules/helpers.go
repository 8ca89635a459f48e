package rules

import "strings"

// splitWithEscapeCharacter splits the string by the specified separator if it
// is not escaped.
func splitWithEscapeCharacter(str string, sep, escapeCharacter byte, preserveAllTokens bool) []string {
	parts := make([]string, 0)

	if str == "" {
		return parts
	}

	var sb strings.Builder
	escaped := false
	for i := range str {
		c := str[i]

		if c == escapeCharacter {
			escaped = true
		} else if c == sep {
			if escaped {
				sb.WriteByte(c)
				escaped = false
			} else {
				if preserveAllTokens || sb.Len() > 0 {
					parts = append(parts, sb.String())
					sb.Reset()
				}
			}
		} else {
			if escaped {
				escaped = false
				sb.WriteByte(escapeCharacter)
			}
			sb.WriteByte(c)
		}
	}

	if preserveAllTokens || sb.Len() > 0 {
		parts = append(parts, sb.String())
	}

	return parts
}

// containsAnyOf checks if any of the specified values is a member of the set.
func containsAnyOf(set map[string]struct{}, values ...string) bool {
	for _, v := range values {
		if v == "" {
			continue
		}

		if _, ok := set[v]; ok {
			return true
		}
	}

	return false
}
