// Package validate classifies bytes as name-safe, type-safe, or value-safe and
// computes the stable content hash used to name anonymous sections.
package validate

import "fmt"

// Name reports whether s is a valid identifier: non-empty, every byte ASCII
// alphanumeric or '_'. Used for package names, section names, option names,
// and section types.
func Name(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_') {
			return false
		}
	}
	return true
}

// Type is a historical alias of Name, retained because the C implementation
// treated types as a superset of identifiers.
func Type(s string) bool {
	return Name(s)
}

// Text reports whether s is safe as an option value or list item: every byte
// is either TAB or >= 0x20, and never CR/LF.
func Text(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 {
			return false
		}
	}
	return true
}

// djbSeed is the seed the historical implementation starts hashing from.
const djbSeed uint32 = 5381

// djbStep folds one byte into the running hash: h = ((h<<5)+h)+b.
func djbStep(h uint32, b byte) uint32 {
	return ((h << 5) + h) + uint32(b)
}

// djbString folds every byte of s into h.
func djbString(h uint32, s string) uint32 {
	for i := 0; i < len(s); i++ {
		h = djbStep(h, s[i])
	}
	return h
}

// HashableOption is the minimal view of an option SectionHash needs: its
// name, and — for scalars only — its value. List options must pass Value=""
// and IsList=true so only their name contributes to the hash, matching the
// historical C implementation.
type HashableOption struct {
	Name   string
	Value  string
	IsList bool
}

// SectionHash computes the stable content hash of an anonymous section: seed
// 5381, then hash, in order, the section type, then for each option its name
// followed by its scalar value (list options contribute only their name). The
// result is masked to 31 bits before the caller takes the low 16 for display.
func SectionHash(typ string, opts []HashableOption) uint32 {
	h := djbSeed
	h = djbString(h, typ)
	for _, o := range opts {
		h = djbString(h, o.Name)
		if !o.IsList {
			h = djbString(h, o.Value)
		}
	}
	return h & 0x7FFFFFFF
}

// AnonName formats the generated name of an anonymous section. counter has
// already been incremented by the caller before this is called.
func AnonName(counter int, hash uint32) string {
	return fmt.Sprintf("cfg%02x%04x", counter&0xFF, hash&0xFFFF)
}
