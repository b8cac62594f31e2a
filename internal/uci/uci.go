// Package uci is the public facade binding validate, token, model, resolver,
// delta, format, and backend together: Load/Get/Set/Delete/Rename/AddList/
// Add/Save/Commit/Revert/Unload, plus request-id and history wiring.
package uci

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/uci-go/uci/internal/uci/backend"
	"github.com/uci-go/uci/internal/uci/delta"
	"github.com/uci-go/uci/internal/uci/format"
	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/reqid"
	"github.com/uci-go/uci/internal/uci/resolver"
	"github.com/uci-go/uci/internal/uci/ucierr"
	"github.com/uci-go/uci/internal/uci/validate"
)

// History is the optional durable delta log a Context can mirror entries
// into, implemented by internal/ucihistory.Store. Kept as an interface here
// so this package has no dependency on database/sql or modernc.org/sqlite.
type History interface {
	Record(pkgName string, entry model.DeltaEntry) error
}

// Context is the unit of isolation: all loaded packages, registered
// backends, and behavior flags live here. A Context is not safe for
// concurrent use from multiple goroutines — it is a single-threaded-per-
// context model.
type Context struct {
	Registry *backend.Registry

	// Strict aborts import on the first parse error instead of recovering
	// per logical line.
	Strict bool
	// ExportAnonNames emits generated anonymous-section names on export.
	ExportAnonNames bool
	// SavedHistory additionally mirrors every delta that crosses from the
	// save file into SavedDeltas, and every delta flushed by Save, into
	// History (when set).
	SavedHistory bool

	// SearchPaths lists additional directories consulted, in order, when
	// resolving a package's delta/save file (the CLI's repeatable `-p`
	// flag). A registered backend that implements SearchPathBackend walks
	// this list itself; one that doesn't falls back to its own single
	// configured save directory.
	SearchPaths []string

	Logger  *slog.Logger
	History History

	packages map[string]*model.Package
}

// New creates a Context backed by reg. If logger is nil, slog.Default() is
// used.
func New(reg *backend.Registry, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Registry: reg,
		Logger:   logger,
		packages: make(map[string]*model.Package),
	}
}

// resolvePackage implements resolver.PackageLookup: an already-loaded
// package is reused, otherwise Load auto-loads it from the default backend.
func (c *Context) resolvePackage(name string) (*model.Package, error) {
	if p, ok := c.packages[name]; ok {
		return p, nil
	}
	return c.Load(name)
}

// tagRequestID attaches id to err's RequestID field when err is a
// *ucierr.Error, so a caller can correlate a failure with the log lines
// from the Context method call that produced it. Errors of any other type
// (e.g. a plain error bubbled up from the resolver) pass through unchanged.
func tagRequestID(err error, id string) error {
	if ue, ok := err.(*ucierr.Error); ok {
		ue.WithRequestID(id)
	}
	return err
}

// applySearchPaths pushes c.SearchPaths onto b if b supports it, so every
// backend resolution reflects the context's current `-p` list before a
// save-file lookup.
func (c *Context) applySearchPaths(b backend.Backend) {
	if len(c.SearchPaths) == 0 {
		return
	}
	if sp, ok := b.(backend.SearchPathBackend); ok {
		sp.SetSearchPaths(c.SearchPaths)
	}
}

// Load reads name from the default backend, replays its save file if one
// exists, and registers the resulting package in the context. Calling Load
// again for an already-loaded package returns the cached instance; call
// Unload first to force a fresh read.
func (c *Context) Load(name string) (*model.Package, error) {
	id := reqid.New()
	b, err := c.Registry.Default()
	if err != nil {
		return nil, tagRequestID(err, id)
	}
	c.applySearchPaths(b)
	pkg, err := c.loadFrom(b, name, id)
	return pkg, tagRequestID(err, id)
}

// LoadFrom is Load against a specific named backend rather than the
// registry's default, for callers juggling more than one backend.
func (c *Context) LoadFrom(backendName, name string) (*model.Package, error) {
	id := reqid.New()
	b, err := c.Registry.Get(backendName)
	if err != nil {
		return nil, tagRequestID(err, id)
	}
	c.applySearchPaths(b)
	pkg, err := c.loadFrom(b, name, id)
	return pkg, tagRequestID(err, id)
}

// loadFrom opens name through b. name is usually a bare package identifier
// (the common, pointer-driven path), but it may also be an absolute or
// explicit relative filesystem path — the backend's path bypass — in which case
// it is not itself a valid pointer identifier, so the resulting package's
// Name is instead derived from the stream's own `package` directive, or
// failing that a sanitized form of the path's base name, so callers can
// still address it by pointer afterwards.
func (c *Context) loadFrom(b backend.Backend, name, reqID string) (*model.Package, error) {
	h, path, hasDeltaLog, err := b.Open(name, backend.LockShared)
	if err != nil {
		return nil, ucierr.Wrap(ucierr.IO, "Load", "opening config file", err).WithPrefix(name)
	}
	defer h.Close()

	defaultName := name
	if !validate.Name(defaultName) {
		defaultName = sanitizeIdentifier(name)
	}

	res, err := format.Import(h, format.ImportOptions{
		Strict:             c.Strict,
		DefaultPackageName: defaultName,
	})
	if err != nil {
		return nil, err
	}

	pkg := pickPackage(res.Packages, defaultName)
	pkg.Path = path
	pkg.HasDeltaLog = hasDeltaLog
	pkg.Backend = b.Name()

	if hasDeltaLog {
		if err := c.replaySaveFile(b, pkg); err != nil {
			return nil, err
		}
	}

	c.packages[pkg.Name] = pkg
	c.Logger.Debug("loaded package", "request_id", reqID, "package", pkg.Name, "sections", len(pkg.Sections), "has_delta_log", hasDeltaLog)
	return pkg, nil
}

// sanitizeIdentifier turns an arbitrary filesystem path into a validate.Name
// -safe identifier: its base name with any extension stripped and every
// non-alphanumeric, non-underscore byte replaced by '_'.
func sanitizeIdentifier(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	b := []byte(base)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			b[i] = '_'
		}
	}
	if len(b) == 0 {
		return "pkg"
	}
	return string(b)
}

// pickPackage selects, from a multi-package import result, the package
// matching name; if none matches (a stream with no `package` directive and
// exactly one resulting package, or an entirely empty stream) it falls back
// to the sole result or a fresh empty package.
func pickPackage(pkgs []*model.Package, name string) *model.Package {
	for _, p := range pkgs {
		if p.Name == name {
			return p
		}
	}
	if len(pkgs) == 1 {
		return pkgs[0]
	}
	return model.NewPackage(name)
}

// replaySaveFile replays a package's save file (if one exists) into pkg,
// always leniently, recording each successfully applied entry into
// pkg.SavedDeltas and, when SavedHistory is set, into History.
func (c *Context) replaySaveFile(b backend.Backend, pkg *model.Package) error {
	sh, _, err := b.OpenSaveFile(pkg.Name, backend.LockShared)
	if err != nil {
		if ucierr.Is(err, ucierr.NotFound) {
			return nil
		}
		return err
	}
	defer sh.Close()

	for _, line := range delta.Replay(pkg, sh) {
		pkg.SavedDeltas = append(pkg.SavedDeltas, line.Entry)
		if c.SavedHistory && c.History != nil {
			if err := c.History.Record(pkg.Name, line.Entry); err != nil {
				c.Logger.Warn("recording saved delta to history failed", "package", pkg.Name, "error", err)
			}
		}
	}
	return nil
}

// Unload drops a package from the context without touching disk. A
// subsequent Load re-reads it from the backend.
func (c *Context) Unload(name string) {
	delete(c.packages, name)
}

// Get resolves pointer and returns its reference, for read-only callers
// (e.g. the `get` CLI subcommand).
func (c *Context) Get(pointer string) (*resolver.Ref, error) {
	id := reqid.New()
	c.Logger.Debug("get", "request_id", id, "pointer", pointer)
	ref, err := resolver.Resolve(pointer, c.resolvePackage)
	return ref, tagRequestID(err, id)
}

// mutate applies entry to pkg's tree and, when log is true, appends it to
// pkg.PendingDeltas; History sees the entry only later, when Save flushes
// it. A Change delta whose value already matches the option's current
// scalar is a no-op that is neither applied again nor logged — see
// SPEC_FULL.md's resolution of the redundant-Change open question.
func (c *Context) mutate(pkg *model.Package, entry model.DeltaEntry, log bool) error {
	if entry.Command == model.DeltaChange && entry.HasOption {
		if sec := pkg.LookupSection(entry.Section); sec != nil {
			if opt := sec.LookupOption(entry.Option); opt != nil && opt.Kind == model.Scalar && opt.Scalar == entry.Value {
				return nil
			}
		}
	}

	if err := delta.Apply(pkg, entry); err != nil {
		return err
	}
	if log {
		pkg.PendingDeltas = append(pkg.PendingDeltas, entry)
	}
	return nil
}

// Set assigns value to the option, or the type to the section, named by
// pointer. A missing section is materialized when pointer names only a
// section (the `pkg.section=type` idiom); a missing option under an
// existing section is created. Setting an option under a missing section is
// an error.
func (c *Context) Set(pointer, value string) error {
	id := reqid.New()
	c.Logger.Debug("set", "request_id", id, "pointer", pointer)

	ref, err := resolver.Resolve(pointer+"="+value, c.resolvePackage)
	if err != nil {
		return tagRequestID(err, id)
	}

	switch {
	case ref.SectionName == "":
		return tagRequestID(ucierr.New(ucierr.Inval, "Set", "pointer names only a package").WithPrefix(pointer), id)

	case ref.Section == nil:
		if ref.OptionName != "" {
			return tagRequestID(ucierr.New(ucierr.NotFound, "Set", "no such section: "+ref.SectionName).WithPrefix(pointer), id)
		}
		return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
			Command: model.DeltaAdd, Section: ref.SectionName, Value: value, HasValue: true,
		}, true), id)

	case ref.OptionName == "":
		return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
			Command: model.DeltaAdd, Section: ref.Section.Name, Value: value, HasValue: true,
		}, true), id)

	default:
		return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
			Command: model.DeltaChange, Section: ref.Section.Name, Option: ref.OptionName,
			HasOption: true, Value: value, HasValue: true,
		}, true), id)
	}
}

// Delete removes the option, or entire section, named by pointer.
func (c *Context) Delete(pointer string) error {
	id := reqid.New()
	c.Logger.Debug("delete", "request_id", id, "pointer", pointer)

	ref, err := resolver.Resolve(pointer, c.resolvePackage)
	if err != nil {
		return tagRequestID(err, id)
	}
	if ref.SectionName == "" {
		return tagRequestID(ucierr.New(ucierr.Inval, "Delete", "pointer names only a package").WithPrefix(pointer), id)
	}
	if ref.Section == nil {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Delete", "no such section: "+ref.SectionName).WithPrefix(pointer), id)
	}
	if ref.OptionName == "" {
		return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
			Command: model.DeltaRemove, Section: ref.Section.Name,
		}, true), id)
	}
	if ref.Option == nil {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Delete", "no such option: "+ref.OptionName).WithPrefix(pointer), id)
	}
	return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
		Command: model.DeltaRemove, Section: ref.Section.Name, Option: ref.OptionName, HasOption: true,
	}, true), id)
}

// Rename renames the section, or option, named by pointer to newName.
func (c *Context) Rename(pointer, newName string) error {
	id := reqid.New()
	c.Logger.Debug("rename", "request_id", id, "pointer", pointer, "new_name", newName)

	if !validate.Name(newName) {
		return tagRequestID(ucierr.New(ucierr.Inval, "Rename", "invalid new name: "+newName).WithPrefix(pointer), id)
	}
	ref, err := resolver.Resolve(pointer, c.resolvePackage)
	if err != nil {
		return tagRequestID(err, id)
	}
	if ref.Section == nil {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Rename", "no such section: "+ref.SectionName).WithPrefix(pointer), id)
	}
	if ref.OptionName == "" {
		return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
			Command: model.DeltaRename, Section: ref.Section.Name, Value: newName, HasValue: true,
		}, true), id)
	}
	if ref.Option == nil {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Rename", "no such option: "+ref.OptionName).WithPrefix(pointer), id)
	}
	return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
		Command: model.DeltaRename, Section: ref.Section.Name, Option: ref.OptionName,
		HasOption: true, Value: newName, HasValue: true,
	}, true), id)
}

// AddList appends value to the list option named by pointer, creating the
// option (or promoting an existing scalar) as needed.
func (c *Context) AddList(pointer, value string) error {
	id := reqid.New()
	c.Logger.Debug("add_list", "request_id", id, "pointer", pointer)

	ref, err := resolver.Resolve(pointer, c.resolvePackage)
	if err != nil {
		return tagRequestID(err, id)
	}
	if ref.Section == nil {
		return tagRequestID(ucierr.New(ucierr.NotFound, "AddList", "no such section: "+ref.SectionName).WithPrefix(pointer), id)
	}
	if ref.OptionName == "" {
		return tagRequestID(ucierr.New(ucierr.Inval, "AddList", "add_list requires an option").WithPrefix(pointer), id)
	}
	return tagRequestID(c.mutate(ref.Package, model.DeltaEntry{
		Command: model.DeltaListAdd, Section: ref.Section.Name, Option: ref.OptionName,
		HasOption: true, Value: value, HasValue: true,
	}, true), id)
}

// Add creates a new anonymous section of type typ in pkgName and returns its
// generated name, corresponding to the `add` CLI subcommand.
func (c *Context) Add(pkgName, typ string) (string, error) {
	id := reqid.New()
	c.Logger.Debug("add", "request_id", id, "package", pkgName, "type", typ)

	if !validate.Type(typ) {
		return "", tagRequestID(ucierr.New(ucierr.Inval, "Add", "invalid type: "+typ).WithPrefix(pkgName), id)
	}
	pkg, err := c.resolvePackage(pkgName)
	if err != nil {
		return "", tagRequestID(err, id)
	}
	sec := pkg.AllocSection(typ, "")
	pkg.FixupSection(sec)
	pkg.PendingDeltas = append(pkg.PendingDeltas, model.DeltaEntry{
		Command: model.DeltaAdd, Section: sec.Name, Value: typ, HasValue: true,
	})
	return sec.Name, nil
}

// NewRequestID is exported for callers (e.g. the CLI front end) wanting to
// tag a batch of operations with one correlation id via ucierr.WithRequestID.
func NewRequestID() string { return reqid.New() }
