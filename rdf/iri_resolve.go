package rdf

import (
	"fmt"
	"strings"
)

// ResolveIRI resolves a relative IRI reference against a base IRI according to
// RFC 3986 section 5.2. Absolute references are returned unchanged. Resolution
// works on the IRI characters directly: non-ASCII characters stay as they are
// and existing percent-encodings are kept byte for byte. The result is not
// validated; callers run ValidateAbsoluteIRI on it.
func ResolveIRI(base, ref string) (string, error) {
	if IsAbsoluteIRI(ref) {
		return ref, nil
	}
	if base == "" {
		return "", fmt.Errorf("relative IRI %q without base", ref)
	}
	if err := ValidateAbsoluteIRI(base); err != nil {
		return "", fmt.Errorf("invalid base IRI %q: %w", base, err)
	}

	b := splitIRI(base)
	r := splitIRI(ref)
	t := iriParts{scheme: b.scheme, fragment: r.fragment, hasFragment: r.hasFragment}
	switch {
	case r.hasAuthority:
		t.authority, t.hasAuthority = r.authority, true
		t.path = removeDotSegments(r.path)
		t.query, t.hasQuery = r.query, r.hasQuery
	case r.path == "":
		t.authority, t.hasAuthority = b.authority, b.hasAuthority
		t.path = b.path
		t.query, t.hasQuery = b.query, b.hasQuery
		if r.hasQuery {
			t.query, t.hasQuery = r.query, true
		}
	default:
		t.authority, t.hasAuthority = b.authority, b.hasAuthority
		if strings.HasPrefix(r.path, "/") {
			t.path = removeDotSegments(r.path)
		} else {
			t.path = removeDotSegments(mergePaths(b, r.path))
		}
		t.query, t.hasQuery = r.query, r.hasQuery
	}
	return t.String(), nil
}

type iriParts struct {
	scheme       string
	authority    string
	path         string
	query        string
	fragment     string
	hasAuthority bool
	hasQuery     bool
	hasFragment  bool
}

func splitIRI(s string) iriParts {
	var p iriParts
	if before, after, found := strings.Cut(s, "#"); found {
		s, p.fragment, p.hasFragment = before, after, true
	}
	if before, after, found := strings.Cut(s, "?"); found {
		s, p.query, p.hasQuery = before, after, true
	}
	if IsAbsoluteIRI(s) {
		idx := strings.IndexByte(s, ':')
		p.scheme, s = s[:idx], s[idx+1:]
	}
	if rest, ok := strings.CutPrefix(s, "//"); ok {
		end := strings.IndexByte(rest, '/')
		if end < 0 {
			end = len(rest)
		}
		p.authority, p.hasAuthority, s = rest[:end], true, rest[end:]
	}
	p.path = s
	return p
}

func (p iriParts) String() string {
	var b strings.Builder
	if p.scheme != "" {
		b.WriteString(p.scheme)
		b.WriteByte(':')
	}
	if p.hasAuthority {
		b.WriteString("//")
		b.WriteString(p.authority)
	}
	b.WriteString(p.path)
	if p.hasQuery {
		b.WriteByte('?')
		b.WriteString(p.query)
	}
	if p.hasFragment {
		b.WriteByte('#')
		b.WriteString(p.fragment)
	}
	return b.String()
}

func mergePaths(base iriParts, ref string) string {
	if base.hasAuthority && base.path == "" {
		return "/" + ref
	}
	return base.path[:strings.LastIndexByte(base.path, '/')+1] + ref
}

// removeDotSegments applies the RFC 3986 section 5.2.4 algorithm.
func removeDotSegments(path string) string {
	var out strings.Builder
	pop := func() {
		s := out.String()
		out.Reset()
		out.WriteString(s[:max(strings.LastIndexByte(s, '/'), 0)])
	}
	in := path
	for in != "" {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = in[2:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = in[3:]
			pop()
		case in == "/..":
			in = "/"
			pop()
		case in == "." || in == "..":
			in = ""
		default:
			end := strings.IndexByte(in[1:], '/')
			if end < 0 {
				end = len(in)
			} else {
				end++
			}
			out.WriteString(in[:end])
			in = in[end:]
		}
	}
	return out.String()
}
