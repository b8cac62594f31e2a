package delta

import (
	"bufio"
	"io"
	"strings"

	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/ucierr"
)

// Apply mutates pkg according to e. It is the single place that interprets
// the five delta commands, used both when a public mutation records a new
// entry and when a save file is replayed at load or at commit.
func Apply(pkg *model.Package, e model.DeltaEntry) error {
	switch e.Command {
	case model.DeltaAdd:
		return applyAdd(pkg, e)
	case model.DeltaChange:
		return applyChange(pkg, e)
	case model.DeltaRemove:
		return applyRemove(pkg, e)
	case model.DeltaRename:
		return applyRename(pkg, e)
	case model.DeltaListAdd:
		return applyListAdd(pkg, e)
	default:
		return ucierr.New(ucierr.Inval, "Apply", "unknown delta command")
	}
}

// applyAdd creates or retypes a section: `+pkg.section=type`.
func applyAdd(pkg *model.Package, e model.DeltaEntry) error {
	if e.HasOption {
		return ucierr.New(ucierr.Inval, "Apply", "add delta must not name an option")
	}
	if sec := pkg.LookupSection(e.Section); sec != nil {
		sec.Type = e.Value
		return nil
	}
	pkg.AllocSection(e.Value, e.Section)
	return nil
}

// applyChange sets an option's scalar value, creating the option (but not
// the section) if necessary.
func applyChange(pkg *model.Package, e model.DeltaEntry) error {
	sec := pkg.LookupSection(e.Section)
	if sec == nil {
		return ucierr.New(ucierr.NotFound, "Apply", "no such section: "+e.Section)
	}
	if !e.HasOption {
		return nil
	}
	if opt := sec.LookupOption(e.Option); opt != nil {
		if opt.Kind == model.List {
			return ucierr.New(ucierr.Inval, "Apply", "option "+e.Option+" is a list")
		}
		opt.Scalar = e.Value
		return nil
	}
	sec.AllocOptionScalar(e.Option, e.Value)
	return nil
}

// applyRemove deletes an option, or an entire section when no option is
// named.
func applyRemove(pkg *model.Package, e model.DeltaEntry) error {
	sec := pkg.LookupSection(e.Section)
	if sec == nil {
		return nil // already gone; removal is idempotent
	}
	if !e.HasOption {
		pkg.FreeSection(sec)
		return nil
	}
	if opt := sec.LookupOption(e.Option); opt != nil {
		sec.FreeOption(opt)
	}
	return nil
}

// applyRename renames a section (e.Value holds the new name) or, when an
// option is named, renames that option instead.
func applyRename(pkg *model.Package, e model.DeltaEntry) error {
	sec := pkg.LookupSection(e.Section)
	if sec == nil {
		return ucierr.New(ucierr.NotFound, "Apply", "no such section: "+e.Section)
	}
	if !e.HasOption {
		sec.Name = e.Value
		sec.Anonymous = false
		return nil
	}
	opt := sec.LookupOption(e.Option)
	if opt == nil {
		return ucierr.New(ucierr.NotFound, "Apply", "no such option: "+e.Option)
	}
	opt.Name = e.Value
	return nil
}

// applyListAdd appends a value to a list option, creating it (or promoting
// an existing scalar) as needed.
func applyListAdd(pkg *model.Package, e model.DeltaEntry) error {
	if !e.HasOption {
		return ucierr.New(ucierr.Inval, "Apply", "list-add delta must name an option")
	}
	sec := pkg.LookupSection(e.Section)
	if sec == nil {
		return ucierr.New(ucierr.NotFound, "Apply", "no such section: "+e.Section)
	}
	opt := sec.LookupOption(e.Option)
	if opt == nil {
		opt = sec.AllocOptionList(e.Option)
	} else if opt.Kind == model.Scalar {
		opt.PromoteToList()
	}
	opt.AppendListItem(e.Value)
	return nil
}

// Replay reads a save file line by line and applies each decoded entry to
// pkg. It is always lenient: a line that fails to decode, or that fails to
// apply (e.g. a change naming a section that does not exist), is skipped
// rather than aborting the replay. Entries whose package component doesn't
// match pkg.Name are skipped too, guarding against a hand-edited or
// corrupted save file.
func Replay(pkg *model.Package, r io.Reader) []*Line {
	var applied []*Line
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		decoded, err := Decode(line)
		if err != nil {
			continue
		}
		if decoded.Package != pkg.Name {
			continue
		}
		if err := Apply(pkg, decoded.Entry); err != nil {
			continue
		}
		applied = append(applied, decoded)
	}
	return applied
}

// EncodeAll renders entries as save-file lines, one per DeltaEntry, each
// terminated by "\n".
func EncodeAll(pkgName string, entries []model.DeltaEntry) (string, error) {
	var b strings.Builder
	for _, e := range entries {
		s, err := Encode(pkgName, e)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
