package uci

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/uci-go/uci/internal/uci/backend"
	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/ucierr"
)

func newTestContext(t *testing.T) (*Context, *backend.FileBackend) {
	t.Helper()
	confDir := t.TempDir()
	saveDir := t.TempDir()
	fb := backend.NewFileBackend(confDir, saveDir)
	reg := backend.NewRegistry()
	reg.Register(fb)
	return New(reg, nil), fb
}

func writeConfig(t *testing.T, dir, name, text string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
}

const networkConfig = `
config interface 'lan'
	option proto 'static'
	option ipaddr '192.168.1.1'

config interface 'wan'
	option proto 'dhcp'
`

func TestLoadParsesConfigFile(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)

	pkg, err := c.Load("network")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pkg.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(pkg.Sections))
	}
	if !pkg.HasDeltaLog {
		t.Fatal("expected HasDeltaLog=true for a managed-dir package")
	}
}

func TestSetChangesExistingOption(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	if _, err := c.Load("network"); err != nil {
		t.Fatal(err)
	}

	if err := c.Set("network.lan.proto", "dhcp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ref, err := c.Get("network.lan.proto")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Option.Scalar != "dhcp" {
		t.Fatalf("proto = %q, want dhcp", ref.Option.Scalar)
	}
	if len(ref.Package.PendingDeltas) != 1 {
		t.Fatalf("pending deltas = %d, want 1", len(ref.Package.PendingDeltas))
	}
}

func TestSetSameValueIsNotLogged(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	pkg, _ := c.Load("network")

	if err := c.Set("network.lan.proto", "static"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(pkg.PendingDeltas) != 0 {
		t.Fatalf("pending deltas = %d, want 0 for a redundant Set", len(pkg.PendingDeltas))
	}
}

func TestSetCreatesNamedSection(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Set("network.guest", "interface"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ref, err := c.Get("network.guest")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Section == nil || ref.Section.Type != "interface" {
		t.Fatalf("guest section not created: %+v", ref.Section)
	}
}

func TestSetOptionOnMissingSectionErrors(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Set("network.missing.proto", "dhcp"); err == nil {
		t.Fatal("expected error setting an option on a missing section")
	}
}

func TestDeleteSectionAndOption(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Delete("network.lan.ipaddr"); err != nil {
		t.Fatalf("Delete option: %v", err)
	}
	ref, _ := c.Get("network.lan")
	if ref.Section.LookupOption("ipaddr") != nil {
		t.Fatal("expected ipaddr removed")
	}

	if err := c.Delete("network.wan"); err != nil {
		t.Fatalf("Delete section: %v", err)
	}
	ref2, _ := c.Get("network.wan")
	if ref2.Section != nil {
		t.Fatal("expected wan section removed")
	}
}

func TestAddListCreatesAndAppends(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.AddList("network.lan.dns", "8.8.8.8"); err != nil {
		t.Fatalf("AddList: %v", err)
	}
	if err := c.AddList("network.lan.dns", "1.1.1.1"); err != nil {
		t.Fatalf("AddList: %v", err)
	}
	ref, _ := c.Get("network.lan.dns")
	if len(ref.Option.List) != 2 {
		t.Fatalf("dns list = %v, want 2 entries", ref.Option.List)
	}
}

func TestAddCreatesAnonymousSection(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	name, err := c.Add("network", "route")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	ref, err := c.Get("network." + name)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Section == nil || ref.Section.Type != "route" || !ref.Section.Anonymous {
		t.Fatalf("anonymous section not created correctly: %+v", ref.Section)
	}
}

func TestSaveThenLoadReplaysDeltas(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Set("network.lan.proto", "dhcp"); err != nil {
		t.Fatal(err)
	}
	if err := c.Save("network"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	c.Unload("network")
	pkg, err := c.Load("network")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if pkg.LookupSection("lan").LookupOption("proto").Scalar != "dhcp" {
		t.Fatal("expected replayed proto=dhcp after reload")
	}
	if len(pkg.SavedDeltas) != 1 {
		t.Fatalf("saved deltas = %d, want 1", len(pkg.SavedDeltas))
	}
}

func TestCommitMergesAndTruncatesSaveFile(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Set("network.lan.proto", "dhcp"); err != nil {
		t.Fatal(err)
	}
	if err := c.Commit("network", false); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(fb.ConfDir, "network"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte("dhcp")) {
		t.Fatalf("committed file missing dhcp:\n%s", raw)
	}

	savePath := filepath.Join(fb.SaveDir, "network")
	if info, err := os.Stat(savePath); err == nil && info.Size() != 0 {
		t.Fatalf("expected save file truncated after commit, size=%d", info.Size())
	}
}

func TestRevertDropsMatchingDeltasAndReloads(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	if err := c.Set("network.lan.proto", "dhcp"); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("network.wan.proto", "static"); err != nil {
		t.Fatal(err)
	}

	if err := c.Revert("network.lan"); err != nil {
		t.Fatalf("Revert: %v", err)
	}

	ref, _ := c.Get("network.lan.proto")
	if ref.Option.Scalar != "static" {
		t.Fatalf("proto = %q, want static after revert", ref.Option.Scalar)
	}
	refWan, _ := c.Get("network.wan.proto")
	if refWan.Option.Scalar != "static" {
		t.Fatalf("wan proto = %q, want static (unaffected by revert of lan)", refWan.Option.Scalar)
	}
}

func TestListConfigsUsesDefaultBackend(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	writeConfig(t, fb.ConfDir, "wireless", "config wifi-device 'radio0'\n")

	names, err := c.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("names = %v, want 2 entries", names)
	}
}

func TestAbsolutePathBypassHasNoDeltaLog(t *testing.T) {
	c, fb := newTestContext(t)
	_ = fb
	dir := t.TempDir()
	path := filepath.Join(dir, "standalone.conf")
	writeConfig(t, dir, "standalone.conf", "config section 'x'\n\toption y 'z'\n")

	pkg, err := c.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if pkg.HasDeltaLog {
		t.Fatal("expected no delta log for an absolute-path package")
	}
	if err := c.Set(pkg.Name+".x.y", "w"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Save(pkg.Name); err != nil {
		t.Fatalf("Save should be a no-op, not an error: %v", err)
	}
}

func TestSetErrorCarriesRequestID(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	c.Load("network")

	err := c.Set("network.missing.proto", "dhcp")
	if err == nil {
		t.Fatal("expected error setting an option on a missing section")
	}
	ue, ok := err.(*ucierr.Error)
	if !ok {
		t.Fatalf("error is %T, want *ucierr.Error", err)
	}
	if ue.RequestID == "" {
		t.Fatal("expected a non-empty RequestID on a returned ucierr.Error")
	}
}

type fakeHistory struct {
	records []model.DeltaEntry
}

func (h *fakeHistory) Record(pkgName string, entry model.DeltaEntry) error {
	h.records = append(h.records, entry)
	return nil
}

func TestSaveRecordsPendingDeltasToHistory(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)
	fh := &fakeHistory{}
	c.SavedHistory = true
	c.History = fh

	if _, err := c.Load("network"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Set("network.lan.proto", "dhcp"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Save("network"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(fh.records) != 1 {
		t.Fatalf("got %d history records after Save, want 1", len(fh.records))
	}
	if fh.records[0].Section != "lan" || fh.records[0].Option != "proto" || fh.records[0].Value != "dhcp" {
		t.Fatalf("unexpected recorded entry: %+v", fh.records[0])
	}
}

func TestLoadFindsSaveFileThroughSearchPaths(t *testing.T) {
	c, fb := newTestContext(t)
	writeConfig(t, fb.ConfDir, "network", networkConfig)

	extraSaveDir := t.TempDir()
	writeConfig(t, extraSaveDir, "network", "network.lan.proto=dhcp\n")
	c.SearchPaths = []string{extraSaveDir}

	pkg, err := c.Load("network")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pkg.SavedDeltas) != 1 || pkg.SavedDeltas[0].Value != "dhcp" {
		t.Fatalf("expected the search-path save file to be replayed, got SavedDeltas=%+v", pkg.SavedDeltas)
	}

	ref, err := c.Get("network.lan.proto")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ref.Option == nil || ref.Option.Scalar != "dhcp" {
		t.Fatalf("expected proto=dhcp replayed from the search-path save file, got %+v", ref.Option)
	}
}
