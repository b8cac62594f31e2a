// Package model owns the in-memory config tree: packages, sections, options,
// and the delta records that describe pending and saved mutations to them.
package model

import "github.com/uci-go/uci/internal/uci/validate"

// Kind discriminates the tagged variant an Option holds.
type Kind int

const (
	// Scalar is a single text value.
	Scalar Kind = iota
	// List is an ordered sequence of text values.
	List
)

// DeltaCommand names the kind of mutation a DeltaEntry records.
type DeltaCommand int

const (
	DeltaAdd DeltaCommand = iota
	DeltaChange
	DeltaRemove
	DeltaRename
	DeltaListAdd
)

// DeltaEntry is a single recorded mutation, coarse enough to survive a
// round-trip through the save file.
type DeltaEntry struct {
	Command DeltaCommand
	Section string
	Option  string // empty means "no option", i.e. this targets a section
	Value   string // empty and HasValue=false means "no value"
	HasOption bool
	HasValue  bool
}

// Option is a named value attached to a Section: either a Scalar string or an
// ordered List of strings.
type Option struct {
	Name    string
	Kind    Kind
	Scalar  string
	List    []string
	section *Section // non-owning; valid only for the lifetime of the owning tree
}

// Section returns the owning section. Nil if the option was never attached.
func (o *Option) Section() *Section { return o.section }

// Section is a named, typed, ordered collection of options.
type Section struct {
	Name      string
	Type      string
	Anonymous bool
	Options   []*Option
	pkg       *Package // non-owning
}

// Package returns the owning package. Nil if the section was never attached.
func (s *Section) Package() *Package { return s.pkg }

// LookupOption scans s.Options for the first option named name.
func (s *Section) LookupOption(name string) *Option {
	for _, o := range s.Options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Package is a top-level container: a named configuration file's contents.
type Package struct {
	Name string
	Path string // filesystem path it was read from (relative for a ./ or ../ bypass); empty iff not loaded from disk

	Sections []*Section

	PendingDeltas []DeltaEntry
	SavedDeltas   []DeltaEntry

	HasDeltaLog bool
	Backend     string

	anonCounter int
}

// LookupSection scans p.Sections for the first section named name.
func (p *Package) LookupSection(name string) *Section {
	for _, s := range p.Sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// SectionsOfType returns, in order, every section whose Type equals typ (or
// every section, if typ is empty).
func (p *Package) SectionsOfType(typ string) []*Section {
	if typ == "" {
		return append([]*Section(nil), p.Sections...)
	}
	var out []*Section
	for _, s := range p.Sections {
		if s.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

// NewPackage allocates an empty package.
func NewPackage(name string) *Package {
	return &Package{Name: name}
}

// AllocSection appends a new section of type typ to p. If name is empty, the
// section is marked anonymous and its Name is left empty until FixupSection
// runs; otherwise name becomes the section's permanent name.
func (p *Package) AllocSection(typ, name string) *Section {
	s := &Section{Type: typ, Name: name, Anonymous: name == "", pkg: p}
	p.Sections = append(p.Sections, s)
	return s
}

// FixupSection assigns a generated name to an anonymous section that does not
// yet have one. It is a no-op for named sections or sections already named.
func (p *Package) FixupSection(s *Section) {
	if !s.Anonymous || s.Name != "" {
		return
	}
	p.anonCounter++
	hash := validate.SectionHash(s.Type, hashableOptions(s.Options))
	s.Name = validate.AnonName(p.anonCounter, hash)
}

func hashableOptions(opts []*Option) []validate.HashableOption {
	out := make([]validate.HashableOption, 0, len(opts))
	for _, o := range opts {
		h := validate.HashableOption{Name: o.Name, IsList: o.Kind == List}
		if o.Kind == Scalar {
			h.Value = o.Scalar
		}
		out = append(out, h)
	}
	return out
}

// FreeSection unlinks s from p's section order. It does not need to
// recursively free options: they are only referenced from s.Options, which
// is discarded with s.
func (p *Package) FreeSection(s *Section) {
	for i, cur := range p.Sections {
		if cur == s {
			p.Sections = append(p.Sections[:i], p.Sections[i+1:]...)
			return
		}
	}
}

// AllocOptionScalar appends a new scalar option to s.
func (s *Section) AllocOptionScalar(name, value string) *Option {
	o := &Option{Name: name, Kind: Scalar, Scalar: value, section: s}
	s.Options = append(s.Options, o)
	return o
}

// AllocOptionList appends a new, empty list option to s.
func (s *Section) AllocOptionList(name string) *Option {
	o := &Option{Name: name, Kind: List, section: s}
	s.Options = append(s.Options, o)
	return o
}

// AppendListItem appends value to o's list. o must be of Kind List.
func (o *Option) AppendListItem(value string) {
	o.List = append(o.List, value)
}

// PromoteToList converts a scalar option in place into a list option whose
// first item is the option's former scalar value, per the "list promotion"
// rule: a later `list` directive for an existing scalar promotes it.
func (o *Option) PromoteToList() {
	if o.Kind == List {
		return
	}
	o.Kind = List
	o.List = []string{o.Scalar}
	o.Scalar = ""
}

// FreeOption unlinks o from s's option order.
func (s *Section) FreeOption(o *Option) {
	for i, cur := range s.Options {
		if cur == o {
			s.Options = append(s.Options[:i], s.Options[i+1:]...)
			return
		}
	}
}
