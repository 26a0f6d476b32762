package rdf

import "strings"

// ValidLangTag reports whether tag is a well-formed BCP 47 language tag as
// accepted by Turtle's LANGTAG production (with optional --ltr/--rtl direction).
func ValidLangTag(tag string) bool {
	if tag == "" {
		return false
	}

	if strings.Contains(tag, "--") {
		if strings.Count(tag, "--") > 1 {
			return false
		}
		switch {
		case strings.HasSuffix(tag, "--ltr"):
			tag = strings.TrimSuffix(tag, "--ltr")
		case strings.HasSuffix(tag, "--rtl"):
			tag = strings.TrimSuffix(tag, "--rtl")
		default:
			return false
		}
	}

	parts := strings.Split(tag, "-")
	if len(parts[0]) < 1 || len(parts[0]) > 8 {
		return false
	}
	for i, part := range parts {
		if part == "" {
			return false
		}
		for j := 0; j < len(part); j++ {
			ch := part[j]
			alpha := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
			if i == 0 {
				if !alpha {
					return false
				}
			} else if !alpha && !(ch >= '0' && ch <= '9') {
				return false
			}
		}
	}
	return true
}
