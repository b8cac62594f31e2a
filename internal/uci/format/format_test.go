package format

import (
	"strings"
	"testing"

	"github.com/uci-go/uci/internal/uci/model"
)

func TestImportBasicScalar(t *testing.T) {
	src := "config interface 'lan'\n\toption ipaddr '192.168.1.1'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "net"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Packages) != 1 {
		t.Fatalf("Packages = %d, want 1", len(res.Packages))
	}
	p := res.Packages[0]
	s := p.LookupSection("lan")
	if s == nil {
		t.Fatal("section lan missing")
	}
	o := s.LookupOption("ipaddr")
	if o == nil || o.Scalar != "192.168.1.1" {
		t.Fatalf("ipaddr = %+v", o)
	}
}

// S2 — anonymous section naming is deterministic across re-parse.
func TestImportAnonymousSectionDeterministic(t *testing.T) {
	src := "config interface\n\toption proto 'static'\n\toption ipaddr '1.2.3.4'\n"
	r1, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "net"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	r2, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "net"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	n1 := r1.Packages[0].Sections[0].Name
	n2 := r2.Packages[0].Sections[0].Name
	if n1 != n2 {
		t.Fatalf("anonymous names differ across identical re-parse: %q vs %q", n1, n2)
	}
	if !strings.HasPrefix(n1, "cfg01") {
		t.Fatalf("first anonymous section name = %q, want cfg01 prefix", n1)
	}
}

// S3 — list promotion.
func TestImportListPromotion(t *testing.T) {
	src := "config s 'x'\n\toption foo 'a'\n\tlist foo 'b'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "p"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	o := res.Packages[0].Sections[0].LookupOption("foo")
	if o.Kind != model.List {
		t.Fatalf("Kind = %v, want List", o.Kind)
	}
	want := []string{"a", "b"}
	if len(o.List) != 2 || o.List[0] != want[0] || o.List[1] != want[1] {
		t.Fatalf("List = %v, want %v", o.List, want)
	}
}

// Lenient recovery: an unterminated double quote on line 2 discards section
// a, and parsing resumes at the next physical line with section b.
func TestImportLenientRecoverySkipsBadSection(t *testing.T) {
	src := "config interface 'a'\n\toption x \"1\nconfig interface 'b'\n\toption y '2'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "bad", Strict: false})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Diagnostics.Empty() {
		t.Fatal("expected a diagnostic to be recorded")
	}
	d := res.Diagnostics.Errors[0]
	if d.Line != 2 {
		t.Errorf("diagnostic line = %d, want 2", d.Line)
	}
	if d.Reason != `unterminated "` {
		t.Errorf("diagnostic reason = %q", d.Reason)
	}
	p := res.Packages[0]
	if p.LookupSection("a") != nil {
		t.Error("section a should have been discarded")
	}
	b := p.LookupSection("b")
	if b == nil {
		t.Fatal("section b should have imported successfully")
	}
	if o := b.LookupOption("y"); o == nil || o.Scalar != "2" {
		t.Fatalf("option y = %+v", o)
	}
}

func TestImportStrictAbortsOnError(t *testing.T) {
	src := "config interface 'a'\n\toption x \"1\n"
	_, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "bad", Strict: true})
	if err == nil {
		t.Fatal("expected an error in strict mode")
	}
}

func TestImportScalarListCollisionIsError(t *testing.T) {
	src := "config s 'x'\n\tlist foo 'a'\n\toption foo 'b'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "p"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Diagnostics.Empty() {
		t.Fatal("expected a diagnostic for option/list name collision")
	}
}

func TestRoundTripExportImport(t *testing.T) {
	src := "config interface 'lan'\n\toption proto 'static'\n\tlist dns '8.8.8.8'\n\tlist dns '1.1.1.1'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{DefaultPackageName: "net"})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	var buf strings.Builder
	if err := Export(&buf, res.Packages[0], ExportOptions{}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	res2, err := Import(strings.NewReader(buf.String()), ImportOptions{DefaultPackageName: "net"})
	if err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	s := res2.Packages[0].LookupSection("lan")
	if s == nil {
		t.Fatal("lan missing after round trip")
	}
	if o := s.LookupOption("proto"); o == nil || o.Scalar != "static" {
		t.Fatalf("proto = %+v", o)
	}
	if o := s.LookupOption("dns"); o == nil || len(o.List) != 2 {
		t.Fatalf("dns = %+v", o)
	}
}

func TestExportEscapesSingleQuote(t *testing.T) {
	p := model.NewPackage("p")
	s := p.AllocSection("s", "x")
	s.AllocOptionScalar("foo", "it's")
	var buf strings.Builder
	if err := Export(&buf, p, ExportOptions{}); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(buf.String(), `it'\''s`) {
		t.Fatalf("export = %q, missing escaped quote", buf.String())
	}
}

func TestMergeIntoIgnoresPackageDirective(t *testing.T) {
	existing := model.NewPackage("net")
	src := "package other\nconfig interface 'lan'\n\toption proto 'static'\n"
	res, err := Import(strings.NewReader(src), ImportOptions{MergeInto: existing})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Packages) != 0 {
		t.Fatalf("Packages = %d, want 0 when merging", len(res.Packages))
	}
	if existing.LookupSection("lan") == nil {
		t.Fatal("merge did not attach section to existing package")
	}
}
