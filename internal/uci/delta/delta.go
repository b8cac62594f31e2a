// Package delta implements the on-disk delta-log line format and the
// save/replay/commit/revert machinery that keeps a package's save file in
// sync with its in-memory pending and saved mutations.
package delta

import (
	"fmt"
	"strings"

	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/token"
	"github.com/uci-go/uci/internal/uci/ucierr"
)

// Line is a single decoded delta-log line, including the package component
// the on-disk format carries redundantly alongside the per-package file name.
type Line struct {
	Package string
	Entry   model.DeltaEntry
}

func prefixFor(cmd model.DeltaCommand) byte {
	switch cmd {
	case model.DeltaRemove:
		return '-'
	case model.DeltaRename:
		return '@'
	case model.DeltaListAdd:
		return '|'
	case model.DeltaAdd:
		return '+'
	default:
		return 0
	}
}

func commandForPrefix(p byte) (model.DeltaCommand, bool) {
	switch p {
	case '-':
		return model.DeltaRemove, true
	case '@':
		return model.DeltaRename, true
	case '|':
		return model.DeltaListAdd, true
	case '+':
		return model.DeltaAdd, true
	default:
		return 0, false
	}
}

// needsQuoting reports whether v must be single-quoted to round-trip through
// the tokenizer unambiguously: empty, containing whitespace, or containing a
// byte the tokenizer treats specially outside quotes (`'`, `"`, `\`, `#`,
// `;`).
func needsQuoting(v string) bool {
	if v == "" {
		return true
	}
	return strings.ContainsAny(v, " \t\n'\"\\#;")
}

// escapeValue renders a value for the flat `pkg.section.option=value`
// save-file syntax, quoting only when needsQuoting requires it, the same
// rule the canonical exporter's escapeSingleQuoted applies inside its always-
// quoted '...' fields.
func escapeValue(v string) string {
	if !needsQuoting(v) {
		return v
	}
	if !strings.ContainsRune(v, '\'') {
		return "'" + v + "'"
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// Encode serializes a single delta entry as one save-file line, with no
// trailing newline.
func Encode(pkgName string, e model.DeltaEntry) (string, error) {
	if pkgName == "" || e.Section == "" {
		return "", ucierr.New(ucierr.Inval, "Encode", "package and section are required")
	}
	var b strings.Builder
	if p := prefixFor(e.Command); p != 0 {
		b.WriteByte(p)
	}
	b.WriteString(pkgName)
	b.WriteByte('.')
	b.WriteString(e.Section)
	if e.HasOption {
		b.WriteByte('.')
		b.WriteString(e.Option)
	}
	if e.HasValue {
		b.WriteByte('=')
		b.WriteString(escapeValue(e.Value))
	}
	return b.String(), nil
}

// Decode parses one save-file line into a Line. It is intentionally
// tolerant of malformed input at the field-split level (callers replaying a
// save file treat a Decode error as "skip this line").
func Decode(line string) (*Line, error) {
	trimmed := line
	if trimmed == "" {
		return nil, ucierr.New(ucierr.Parse, "Decode", "empty delta line")
	}

	cmd := model.DeltaChange
	body := trimmed
	if c, ok := commandForPrefix(trimmed[0]); ok {
		cmd = c
		body = trimmed[1:]
	}

	s := token.NewScanner(strings.NewReader(body))
	args, err := s.Next()
	if err != nil {
		return nil, ucierr.Wrap(ucierr.Parse, "Decode", "malformed delta line", err)
	}
	if len(args) != 1 {
		return nil, ucierr.New(ucierr.Parse, "Decode", "malformed delta line: "+line)
	}
	field := args[0]

	var value string
	hasValue := false
	if idx := strings.IndexByte(field, '='); idx >= 0 {
		value = field[idx+1:]
		hasValue = true
		field = field[:idx]
	}

	parts := strings.SplitN(field, ".", 3)
	if len(parts) < 2 {
		return nil, ucierr.New(ucierr.Parse, "Decode", "malformed delta pointer: "+line)
	}

	entry := model.DeltaEntry{
		Command:  cmd,
		Section:  parts[1],
		Value:    value,
		HasValue: hasValue,
	}
	if len(parts) == 3 {
		entry.Option = parts[2]
		entry.HasOption = true
	}

	return &Line{Package: parts[0], Entry: entry}, nil
}

// String renders l for debugging/logging (e.g. in the `changes` CLI output).
func (l *Line) String() string {
	s, err := Encode(l.Package, l.Entry)
	if err != nil {
		return fmt.Sprintf("<invalid delta: %v>", err)
	}
	return s
}
