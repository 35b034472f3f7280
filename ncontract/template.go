package ncontract

import (
	"strings"

	"github.com/pkg/errors"
)

// Segment is one element of a path Template: either a literal or a
// named parameter.
type Segment struct {
	Literal string
	Param   string
}

// IsParam reports whether the segment captures a value.
func (s Segment) IsParam() bool { return s.Param != "" }

// Template is a tokenized path such as /notes/:id.  Parameters may be
// written as :name or {name}.
type Template struct {
	raw      string
	segments []Segment
}

// ParseTemplate tokenizes a path template.
func ParseTemplate(path string) (Template, error) {
	if !strings.HasPrefix(path, "/") {
		return Template{}, errors.Errorf("path template '%s' must start with '/'", path)
	}
	t := Template{raw: path}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return t, nil
	}
	seen := make(map[string]bool)
	for _, part := range strings.Split(trimmed, "/") {
		var name string
		switch {
		case part == "":
			return Template{}, errors.Errorf("path template '%s' has an empty segment", path)
		case strings.HasPrefix(part, ":"):
			name = part[1:]
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
			name = part[1 : len(part)-1]
		case strings.ContainsAny(part, "{}:"):
			return Template{}, errors.Errorf("path template '%s': malformed segment '%s'", path, part)
		default:
			t.segments = append(t.segments, Segment{Literal: part})
			continue
		}
		if name == "" || strings.ContainsAny(name, "{}:") {
			return Template{}, errors.Errorf("path template '%s': malformed parameter '%s'", path, part)
		}
		if seen[name] {
			return Template{}, errors.Errorf("path template '%s': parameter '%s' appears twice", path, name)
		}
		seen[name] = true
		t.segments = append(t.segments, Segment{Param: name})
	}
	return t, nil
}

// String returns the template as it was declared.
func (t Template) String() string { return t.raw }

// Segments returns a copy of the tokens.
func (t Template) Segments() []Segment {
	s := make([]Segment, len(t.segments))
	copy(s, t.segments)
	return s
}

// Params lists parameter names in path order.
func (t Template) Params() []string {
	var names []string
	for _, s := range t.segments {
		if s.IsParam() {
			names = append(names, s.Param)
		}
	}
	return names
}

// MuxPath renders the template in gorilla mux syntax (/notes/{id}).
func (t Template) MuxPath() string {
	if len(t.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteByte('/')
		if s.IsParam() {
			b.WriteString("{" + s.Param + "}")
		} else {
			b.WriteString(s.Literal)
		}
	}
	return b.String()
}

// OpenAPIPath is the same as MuxPath: OpenAPI uses {name} as well.
func (t Template) OpenAPIPath() string { return t.MuxPath() }

// shadows reports whether every path matched by other is also matched
// by t, which makes other unreachable when t is registered first.
func (t Template) shadows(other Template) bool {
	if len(t.segments) != len(other.segments) {
		return false
	}
	for i, s := range t.segments {
		o := other.segments[i]
		if s.IsParam() {
			continue
		}
		if o.IsParam() || o.Literal != s.Literal {
			return false
		}
	}
	return true
}
