package types

import "strings"

// AID is an actor identifier of the form "bare[/resource]". Bare
// identifies a logical role, resource disambiguates instances of
// that role hosted anywhere in the mesh.
type AID string

// Bare returns the bare portion of the identifier, stripping any
// resource suffix.
func (a AID) Bare() string {
	s := string(a)
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Resource returns the resource portion of the identifier, or the
// empty string when the identifier is bare.
func (a AID) Resource() string {
	s := string(a)
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		return s[idx+1:]
	}
	return ""
}

// IsBare reports whether the identifier carries no resource suffix.
func (a AID) IsBare() bool {
	return a.Resource() == ""
}

// BareEqual compares two identifiers ignoring the resource suffix.
func (a AID) BareEqual(other AID) bool {
	return a.Bare() == other.Bare()
}

// Valid reports whether the identifier satisfies the AID grammar: a
// non-empty bare part and, when present, a non-empty resource part.
func (a AID) Valid() bool {
	s := string(a)
	if s == "" {
		return false
	}
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return true
	}
	if idx == 0 {
		return false
	}
	return idx < len(s)-1
}

// WithResource returns a fully-qualified identifier built from this
// bare identifier and the given resource. If the receiver already
// carries a resource it is replaced.
func (a AID) WithResource(resource string) AID {
	return AID(a.Bare() + "/" + resource)
}
