package rdf

import "strings"

// Namespace binds a prefix to a namespace IRI. The empty prefix denotes the
// base namespace.
type Namespace struct {
	Prefix string
	IRI    string
}

// Abbreviate returns the prefixed name for iri using the longest matching
// namespace, or false when no namespace yields a valid local name. Ties are
// broken by declaration order.
func Abbreviate(iri string, namespaces []Namespace) (string, bool) {
	best := -1
	for i, ns := range namespaces {
		if ns.IRI == "" || !strings.HasPrefix(iri, ns.IRI) {
			continue
		}
		if !isQNameLocal(iri[len(ns.IRI):]) {
			continue
		}
		if best < 0 || len(ns.IRI) > len(namespaces[best].IRI) {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	ns := namespaces[best]
	return ns.Prefix + ":" + iri[len(ns.IRI):], true
}

// ValidPrefix reports whether prefix is a valid Turtle PN_PREFIX (or empty).
func ValidPrefix(prefix string) bool {
	if prefix == "" {
		return true
	}
	if !isNameStartChar(prefix[0]) || prefix[len(prefix)-1] == '.' {
		return false
	}
	for i := 1; i < len(prefix); i++ {
		if !isNameChar(prefix[i]) {
			return false
		}
	}
	return true
}

func isQNameLocal(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if i == 0 {
			if !isNameStartChar(ch) && !(ch >= '0' && ch <= '9') {
				return false
			}
		} else if !isNameChar(ch) {
			return false
		}
	}
	return value[len(value)-1] != '.'
}

func isNameStartChar(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || ch == '_'
}

func isNameChar(ch byte) bool {
	return isNameStartChar(ch) || (ch >= '0' && ch <= '9') || ch == '-' || ch == '.'
}
