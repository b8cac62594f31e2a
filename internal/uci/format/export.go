package format

import (
	"bufio"
	"io"
	"strings"

	"github.com/uci-go/uci/internal/uci/model"
)

// ExportOptions configures Export.
type ExportOptions struct {
	// WithPackageName emits a leading `package '<name>'` line.
	WithPackageName bool

	// ExportAnonNames emits the generated name of an anonymous section
	// (`-n`/`-N` CLI flags map to this). When false, anonymous sections are
	// exported as `config '<type>'` with no name.
	ExportAnonNames bool
}

// Export serializes pkg in the canonical textual form.
func Export(w io.Writer, pkg *model.Package, opts ExportOptions) error {
	bw := bufio.NewWriter(w)

	if opts.WithPackageName {
		bw.WriteString("package '")
		bw.WriteString(escapeSingleQuoted(pkg.Name))
		bw.WriteString("'\n")
	}

	for _, s := range pkg.Sections {
		bw.WriteString("\nconfig '")
		bw.WriteString(escapeSingleQuoted(s.Type))
		bw.WriteString("'")
		if !s.Anonymous || opts.ExportAnonNames {
			bw.WriteString(" '")
			bw.WriteString(escapeSingleQuoted(s.Name))
			bw.WriteString("'")
		}
		bw.WriteString("\n")

		for _, o := range s.Options {
			switch o.Kind {
			case model.Scalar:
				bw.WriteString("\toption '")
				bw.WriteString(escapeSingleQuoted(o.Name))
				bw.WriteString("' '")
				bw.WriteString(escapeSingleQuoted(o.Scalar))
				bw.WriteString("'\n")
			case model.List:
				for _, item := range o.List {
					bw.WriteString("\tlist '")
					bw.WriteString(escapeSingleQuoted(o.Name))
					bw.WriteString("' '")
					bw.WriteString(escapeSingleQuoted(item))
					bw.WriteString("'\n")
				}
			default:
				bw.WriteString("\t# unknown type for option '")
				bw.WriteString(escapeSingleQuoted(o.Name))
				bw.WriteString("'\n")
			}
		}
	}
	bw.WriteString("\n")

	return bw.Flush()
}

// escapeSingleQuoted escapes a string for embedding inside '...' by closing
// the quote, emitting a backslashed literal quote, and reopening: '\''.
func escapeSingleQuoted(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return s
	}
	return strings.ReplaceAll(s, "'", `'\''`)
}
