package rdf

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateIRI validates an IRI reference (absolute or relative) according to
// the RFC 3987 syntax. Returns an error if the IRI is invalid, nil otherwise.
//
// The check covers:
// - scheme syntax (letter followed by letters, digits, '+', '-', '.')
// - characters that may never appear unescaped (space, control, <>"{}|^`\)
// - well-formed percent-encoding
// - overall structure via url.Parse
func ValidateIRI(iri string) error {
	if iri == "" {
		return fmt.Errorf("empty IRI")
	}

	for i, r := range iri {
		if r <= 0x20 || (r >= 0x7F && r <= 0x9F) {
			return fmt.Errorf("invalid character %q at position %d in IRI: %s", r, i, iri)
		}
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\':
			return fmt.Errorf("invalid character '%c' at position %d in IRI (should be percent-encoded): %s", r, i, iri)
		case '%':
			if i+2 >= len(iri) || !isHexDigit(iri[i+1]) || !isHexDigit(iri[i+2]) {
				return fmt.Errorf("malformed percent-encoding at position %d in IRI: %s", i, iri)
			}
		}
	}

	parsed, err := url.Parse(iri)
	if err != nil {
		return fmt.Errorf("invalid IRI syntax: %w", err)
	}

	if parsed.Scheme != "" {
		first := parsed.Scheme[0]
		if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
			return fmt.Errorf("scheme must start with a letter: %s", iri)
		}
		return nil
	}

	// Relative reference: a network-path reference still needs a scheme.
	if strings.HasPrefix(iri, "//") {
		return fmt.Errorf("relative IRI without scheme: %s", iri)
	}
	// A colon in the first segment means a malformed scheme.
	if idx := strings.IndexByte(iri, ':'); idx >= 0 {
		firstSlash := strings.IndexAny(iri, "/?#")
		if firstSlash < 0 || idx < firstSlash {
			if !isScheme(iri[:idx]) {
				return fmt.Errorf("IRI appears to be missing a scheme: %s", iri)
			}
		}
	}
	return nil
}

// ValidateAbsoluteIRI validates an IRI and additionally requires a scheme.
func ValidateAbsoluteIRI(iri string) error {
	if err := ValidateIRI(iri); err != nil {
		return err
	}
	if !IsAbsoluteIRI(iri) {
		return fmt.Errorf("IRI is not absolute: %s", iri)
	}
	return nil
}

// IsAbsoluteIRI reports whether iri starts with a syntactically valid scheme.
func IsAbsoluteIRI(iri string) bool {
	idx := strings.IndexByte(iri, ':')
	if idx <= 0 {
		return false
	}
	return isScheme(iri[:idx])
}

func isScheme(scheme string) bool {
	if scheme == "" {
		return false
	}
	first := scheme[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')) {
		return false
	}
	for i := 1; i < len(scheme); i++ {
		ch := scheme[i]
		if !((ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '+' || ch == '-' || ch == '.') {
			return false
		}
	}
	return true
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
