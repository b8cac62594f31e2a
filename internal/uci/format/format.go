// Package format builds the in-memory data model from a tokenized stream and
// emits the canonical textual form back out.
package format

import (
	"errors"
	"fmt"
	"io"

	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/token"
	"github.com/uci-go/uci/internal/uci/ucierr"
	"github.com/uci-go/uci/internal/uci/validate"
)

// Diagnostics accumulates per-line parse failures recorded in lenient mode.
type Diagnostics struct {
	Errors []ucierr.Diagnostic
}

func (d *Diagnostics) record(line, byteOff int, reason string) {
	d.Errors = append(d.Errors, ucierr.Diagnostic{Line: line, Byte: byteOff, Reason: reason})
}

// Empty reports whether no diagnostics were recorded.
func (d *Diagnostics) Empty() bool { return d == nil || len(d.Errors) == 0 }

// ImportOptions configures Import.
type ImportOptions struct {
	// Strict aborts the whole import on the first error. Lenient mode (the
	// default, Strict=false) discards the offending logical line; when that
	// line fails in the tokenizer (e.g. an unterminated quote), the section
	// being built is discarded with it, and option/list lines that follow it
	// before the next `config` are reported as having no current section.
	Strict bool

	// DefaultPackageName names the package to create if the stream never
	// emits a `package` directive and MergeInto is nil.
	DefaultPackageName string

	// MergeInto, if non-nil, is an existing package the stream's sections are
	// merged into; any `package` directive in the stream is then ignored, since
	// the caller has already chosen the target package.
	MergeInto *model.Package
}

// ImportResult is the outcome of a successful (or leniently-recovered) Import.
type ImportResult struct {
	// Packages holds every package produced by the stream, in the order
	// `package` directives introduced them. When MergeInto was set, this is
	// always empty (the caller already holds the package).
	Packages    []*model.Package
	Diagnostics Diagnostics
}

// Import parses r and builds the data model per the grammar:
//
//	package <name>
//	config <type> [<name>]
//	option <name> <value>
//	list <name> <value>
func Import(r io.Reader, opts ImportOptions) (*ImportResult, error) {
	s := token.NewScanner(r)
	res := &ImportResult{}
	merging := opts.MergeInto != nil

	var cur *model.Package
	var curSection *model.Section
	if merging {
		cur = opts.MergeInto
	}
	seenPackageNames := map[string]bool{}

	finishSection := func() {
		if cur != nil && curSection != nil {
			cur.FixupSection(curSection)
			curSection = nil
		}
	}
	finishPackage := func() {
		finishSection()
		if cur != nil && !merging {
			res.Packages = append(res.Packages, cur)
		}
	}

	fail := func(line, byteOff int, reason string) error {
		if opts.Strict {
			return ucierr.New(ucierr.Parse, "Import", reason).WithDiag(line, byteOff, reason)
		}
		res.Diagnostics.record(line, byteOff, reason)
		return nil
	}

	for {
		args, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var terr *token.Error
			line, byteOff, reason := s.Line(), 0, err.Error()
			atBoundary := false
			if errors.As(err, &terr) {
				line, byteOff, reason = terr.Line, terr.Byte, terr.Reason
				atBoundary = terr.AtLineBoundary
			}
			if ferr := fail(line, byteOff, reason); ferr != nil {
				return nil, ferr
			}
			if cur != nil && curSection != nil {
				cur.FreeSection(curSection)
				curSection = nil
			}
			if !atBoundary {
				s.Recover()
			}
			continue
		}
		if len(args) == 0 {
			continue
		}

		line := s.Line()
		switch args[0] {
		case "package":
			if merging {
				continue
			}
			if len(args) < 2 {
				if ferr := fail(line, 0, "package: missing name"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			name := args[1]
			if !validate.Name(name) {
				if ferr := fail(line, 0, "package: invalid name "+name); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if seenPackageNames[name] {
				if opts.Strict {
					return nil, ucierr.New(ucierr.Duplicate, "Import", "duplicate package "+name).WithDiag(line, 0, "duplicate package")
				}
				if ferr := fail(line, 0, "duplicate package "+name); ferr != nil {
					return nil, ferr
				}
				continue
			}
			finishPackage()
			cur = model.NewPackage(name)
			seenPackageNames[name] = true

		case "config":
			if len(args) < 2 {
				if ferr := fail(line, 0, "config: missing type"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			typ := args[1]
			if !validate.Type(typ) {
				if ferr := fail(line, 0, "config: invalid type "+typ); ferr != nil {
					return nil, ferr
				}
				continue
			}
			name := ""
			if len(args) >= 3 {
				name = args[2]
				if !validate.Name(name) {
					if ferr := fail(line, 0, "config: invalid name "+name); ferr != nil {
						return nil, ferr
					}
					continue
				}
			}
			if cur == nil {
				if opts.DefaultPackageName == "" {
					return nil, ucierr.New(ucierr.Parse, "Import", "config directive before any package context").WithDiag(line, 0, "missing package context")
				}
				cur = model.NewPackage(opts.DefaultPackageName)
			}
			finishSection()
			curSection = cur.AllocSection(typ, name)

		case "option":
			if curSection == nil {
				if ferr := fail(line, 0, "option: no current section"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if len(args) < 3 {
				if ferr := fail(line, 0, "option: missing name or value"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			name, value := args[1], args[2]
			if !validate.Name(name) {
				if ferr := fail(line, 0, "option: invalid name "+name); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if existing := curSection.LookupOption(name); existing != nil {
				if existing.Kind == model.List {
					if ferr := fail(line, 0, fmt.Sprintf("option %s collides with existing list", name)); ferr != nil {
						return nil, ferr
					}
					continue
				}
				existing.Scalar = value
				continue
			}
			curSection.AllocOptionScalar(name, value)

		case "list":
			if curSection == nil {
				if ferr := fail(line, 0, "list: no current section"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if len(args) < 3 {
				if ferr := fail(line, 0, "list: missing name or value"); ferr != nil {
					return nil, ferr
				}
				continue
			}
			name, value := args[1], args[2]
			if !validate.Name(name) {
				if ferr := fail(line, 0, "list: invalid name "+name); ferr != nil {
					return nil, ferr
				}
				continue
			}
			opt := curSection.LookupOption(name)
			if opt == nil {
				opt = curSection.AllocOptionList(name)
			} else if opt.Kind == model.Scalar {
				opt.PromoteToList()
			}
			opt.AppendListItem(value)

		default:
			if ferr := fail(line, 0, "unknown directive "+args[0]); ferr != nil {
				return nil, ferr
			}
		}
	}

	finishPackage()
	return res, nil
}
