// Package resolver translates a UCI pointer string into a (package, section,
// option) reference, including the extended @type[idx] anonymous-section
// form.
package resolver

import (
	"strconv"
	"strings"

	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/ucierr"
	"github.com/uci-go/uci/internal/uci/validate"
)

// Ref is the result of resolving a pointer. Its populated fields reflect how
// deeply resolution succeeded: a pointer naming only a package leaves Section
// and Option nil; a pointer naming a section that does not yet exist leaves
// Section nil but SectionName populated, so callers implementing `set` can
// materialize it.
type Ref struct {
	Package     *model.Package
	PackageName string

	Section     *model.Section
	SectionName string // the literal (possibly extended-form) section token

	Option     *model.Option
	OptionName string

	Value    string
	HasValue bool
}

// PackageLookup resolves a package by name, creating or loading it if
// necessary. Implementations are supplied by the facade package so the
// resolver itself has no I/O dependency.
type PackageLookup func(name string) (*model.Package, error)

// Parse splits pointer into (package, section, option[, value]) components
// without resolving them against any tree; Resolve performs the full lookup.
func Parse(pointer string) (pkg, section, option, value string, hasValue bool) {
	if idx := strings.IndexByte(pointer, '='); idx >= 0 {
		value = pointer[idx+1:]
		hasValue = true
		pointer = pointer[:idx]
	}
	parts := strings.SplitN(pointer, ".", 3)
	pkg = parts[0]
	if len(parts) > 1 {
		section = parts[1]
	}
	if len(parts) > 2 {
		option = parts[2]
	}
	return
}

// Resolve resolves pointer against a tree reachable through lookup.
func Resolve(pointer string, lookup PackageLookup) (*Ref, error) {
	pkgName, sectionTok, optionName, value, hasValue := Parse(pointer)

	if !validate.Name(pkgName) {
		return nil, ucierr.New(ucierr.Inval, "Resolve", "invalid package name: "+pkgName)
	}
	pkg, err := lookup(pkgName)
	if err != nil {
		return nil, err
	}

	ref := &Ref{Package: pkg, PackageName: pkgName, Value: value, HasValue: hasValue}
	if sectionTok == "" {
		return ref, nil
	}
	ref.SectionName = sectionTok

	var sec *model.Section
	if strings.HasPrefix(sectionTok, "@") {
		sec, err = resolveExtended(pkg, sectionTok)
		if err != nil {
			return nil, err
		}
	} else {
		if !validate.Name(sectionTok) {
			return nil, ucierr.New(ucierr.Inval, "Resolve", "invalid section name: "+sectionTok)
		}
		sec = pkg.LookupSection(sectionTok)
	}
	ref.Section = sec

	if optionName == "" {
		return ref, nil
	}
	ref.OptionName = optionName
	if !validate.Name(optionName) {
		return nil, ucierr.New(ucierr.Inval, "Resolve", "invalid option name: "+optionName)
	}
	if sec != nil {
		ref.Option = sec.LookupOption(optionName)
	}
	return ref, nil
}

// resolveExtended parses and evaluates the `@type[idx]` extended section
// form: leading '@', an optional type name, '[', an integer index, ']', and
// nothing else. A negative index counts from the end of the filtered set.
func resolveExtended(pkg *model.Package, tok string) (*model.Section, error) {
	rest := tok[1:] // drop '@'
	open := strings.IndexByte(rest, '[')
	close := strings.IndexByte(rest, ']')
	if open < 0 || close < 0 || close < open || close != len(rest)-1 {
		return nil, ucierr.New(ucierr.Inval, "Resolve", "malformed extended pointer: "+tok)
	}
	typ := rest[:open]
	idxStr := rest[open+1 : close]
	if typ != "" && !validate.Type(typ) {
		return nil, ucierr.New(ucierr.Inval, "Resolve", "invalid type in extended pointer: "+tok)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return nil, ucierr.New(ucierr.Inval, "Resolve", "invalid index in extended pointer: "+tok)
	}

	candidates := pkg.SectionsOfType(typ)
	n := len(candidates)
	if idx < 0 {
		idx = n + idx
	}
	if idx < 0 || idx >= n {
		return nil, ucierr.New(ucierr.NotFound, "Resolve", "extended pointer index out of range: "+tok)
	}
	return candidates[idx], nil
}
