package uci

import (
	"bufio"
	"io"
	"strings"

	"github.com/uci-go/uci/internal/uci/backend"
	"github.com/uci-go/uci/internal/uci/delta"
	"github.com/uci-go/uci/internal/uci/format"
	"github.com/uci-go/uci/internal/uci/model"
	"github.com/uci-go/uci/internal/uci/reqid"
	"github.com/uci-go/uci/internal/uci/resolver"
	"github.com/uci-go/uci/internal/uci/ucierr"
)

// Save flushes pkgName's pending deltas to its save file under an exclusive
// lock, mirrors each into History (when SavedHistory is set), and clears
// them from memory. A package without a delta log (loaded via an absolute or
// explicit-relative path) has nothing to flush.
func (c *Context) Save(pkgName string) error {
	id := reqid.New()
	c.Logger.Debug("save", "request_id", id, "package", pkgName)

	pkg, ok := c.packages[pkgName]
	if !ok {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Save", "package not loaded: "+pkgName), id)
	}
	if !pkg.HasDeltaLog || len(pkg.PendingDeltas) == 0 {
		return nil
	}

	b, err := c.Registry.Get(pkg.Backend)
	if err != nil {
		return tagRequestID(err, id)
	}
	c.applySearchPaths(b)
	h, _, err := b.OpenSaveFile(pkgName, backend.LockExclusive)
	if err != nil {
		return tagRequestID(err, id)
	}
	defer h.Close()

	if _, err := h.Seek(0, io.SeekEnd); err != nil {
		return tagRequestID(ucierr.Wrap(ucierr.IO, "Save", "seeking save file", err).WithPrefix(pkgName), id)
	}
	text, err := delta.EncodeAll(pkgName, pkg.PendingDeltas)
	if err != nil {
		return tagRequestID(err, id)
	}
	if _, err := io.WriteString(h, text); err != nil {
		return tagRequestID(ucierr.Wrap(ucierr.IO, "Save", "writing save file", err).WithPrefix(pkgName), id)
	}

	if c.SavedHistory && c.History != nil {
		for _, entry := range pkg.PendingDeltas {
			if err := c.History.Record(pkgName, entry); err != nil {
				c.Logger.Warn("recording saved delta to history failed", "request_id", id, "package", pkgName, "error", err)
			}
		}
	}

	pkg.PendingDeltas = nil
	c.Logger.Debug("saved pending deltas", "request_id", id, "package", pkgName)
	return nil
}

// Commit merges a package's pending and saved deltas into its canonical
// config file under an exclusive lock. When overwrite is false (the normal
// path) pending deltas are first flushed to the save file, the canonical
// file is re-read under the held lock so concurrent writers are observed,
// the save file is replayed against that fresh read, and only then is the
// canonical file truncated and re-exported; the save file itself is
// truncated once the merged state lands safely. When overwrite is true, the
// in-memory package is exported as-is with no re-read. Either way, the
// canonical file is left untouched unless every step up to the write
// succeeds.
func (c *Context) Commit(pkgName string, overwrite bool) error {
	id := reqid.New()
	c.Logger.Debug("commit", "request_id", id, "package", pkgName, "overwrite", overwrite)

	pkg, ok := c.packages[pkgName]
	if !ok {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Commit", "package not loaded: "+pkgName), id)
	}
	b, err := c.Registry.Get(pkg.Backend)
	if err != nil {
		return tagRequestID(err, id)
	}
	c.applySearchPaths(b)

	h, path, hasDeltaLog, err := b.Open(pkgName, backend.LockExclusive)
	if err != nil {
		return tagRequestID(err, id)
	}
	defer h.Close()

	if hasDeltaLog && !overwrite {
		if err := c.Save(pkgName); err != nil {
			return tagRequestID(err, id)
		}

		fresh := model.NewPackage(pkgName)
		if _, err := format.Import(h, format.ImportOptions{Strict: false, MergeInto: fresh}); err != nil {
			return tagRequestID(err, id)
		}
		fresh.Path = path
		fresh.HasDeltaLog = true
		fresh.Backend = b.Name()

		sh, _, serr := b.OpenSaveFile(pkgName, backend.LockShared)
		if serr != nil && !ucierr.Is(serr, ucierr.NotFound) {
			return tagRequestID(serr, id)
		}
		if serr == nil {
			for _, line := range delta.Replay(fresh, sh) {
				fresh.SavedDeltas = append(fresh.SavedDeltas, line.Entry)
			}
			sh.Close()
		}

		pkg = fresh
		c.packages[pkgName] = pkg
	}

	if err := backupBeforeTruncate(b, pkgName, h); err != nil {
		c.Logger.Warn("pre-commit backup failed, continuing", "request_id", id, "package", pkgName, "error", err)
	}

	if _, err := h.Seek(0, io.SeekStart); err != nil {
		return tagRequestID(ucierr.Wrap(ucierr.IO, "Commit", "seeking config file", err).WithPrefix(pkgName), id)
	}
	if err := h.Truncate(0); err != nil {
		return tagRequestID(ucierr.Wrap(ucierr.IO, "Commit", "truncating config file", err).WithPrefix(pkgName), id)
	}
	if err := format.Export(h, pkg, format.ExportOptions{ExportAnonNames: c.ExportAnonNames}); err != nil {
		return tagRequestID(err, id)
	}

	if hasDeltaLog && !overwrite {
		if sh2, _, serr := b.OpenSaveFile(pkgName, backend.LockExclusive); serr == nil {
			_ = sh2.Truncate(0)
			sh2.Close()
		}
		pkg.SavedDeltas = nil
	}

	c.Logger.Info("committed package", "request_id", id, "package", pkgName, "overwrite", overwrite)
	return nil
}

// backupBeforeTruncate takes a best-effort pre-commit snapshot of the
// canonical file before it is truncated; a failure here never aborts the
// commit. See internal/uci/backend.Backup.
func backupBeforeTruncate(b backend.Backend, name string, h backend.Handle) error {
	bb, ok := b.(backend.Backuper)
	if !ok {
		return nil
	}
	if _, err := h.Seek(0, io.SeekStart); err != nil {
		return err
	}
	return bb.Backup(name, h)
}

// Revert drops every pending and saved delta whose section[.option]
// component matches pointer (a partial pointer: pkg, pkg.section, or
// pkg.section.option), rewrites the save file to exclude the matching
// lines, and reloads the package from its canonical file so the affected
// subtree's in-memory state is restored.
func (c *Context) Revert(pointer string) error {
	id := reqid.New()
	c.Logger.Debug("revert", "request_id", id, "pointer", pointer)

	pkgName, sectionTok, optionTok, _, _ := resolver.Parse(pointer)
	pkg, ok := c.packages[pkgName]
	if !ok {
		return tagRequestID(ucierr.New(ucierr.NotFound, "Revert", "package not loaded: "+pkgName), id)
	}

	matches := func(e model.DeltaEntry) bool {
		if sectionTok != "" && e.Section != sectionTok {
			return false
		}
		if optionTok != "" && (!e.HasOption || e.Option != optionTok) {
			return false
		}
		return true
	}

	pkg.PendingDeltas = dropMatching(pkg.PendingDeltas, matches)
	pkg.SavedDeltas = dropMatching(pkg.SavedDeltas, matches)

	if pkg.HasDeltaLog {
		b, err := c.Registry.Get(pkg.Backend)
		if err != nil {
			return tagRequestID(err, id)
		}
		c.applySearchPaths(b)
		if err := rewriteSaveFile(b, pkgName, matches); err != nil {
			return tagRequestID(err, id)
		}
	}

	remaining := pkg.PendingDeltas
	c.Unload(pkgName)
	fresh, err := c.Load(pkgName)
	if err != nil {
		return tagRequestID(err, id)
	}
	for _, e := range remaining {
		if delta.Apply(fresh, e) == nil {
			fresh.PendingDeltas = append(fresh.PendingDeltas, e)
		}
	}
	return nil
}

func dropMatching(entries []model.DeltaEntry, matches func(model.DeltaEntry) bool) []model.DeltaEntry {
	var out []model.DeltaEntry
	for _, e := range entries {
		if !matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// rewriteSaveFile opens pkgName's save file exclusively, keeps every line
// that either fails to decode (preserved verbatim, best-effort) or decodes
// to an entry matches rejects, and writes the result back in place.
func rewriteSaveFile(b backend.Backend, pkgName string, matches func(model.DeltaEntry) bool) error {
	h, _, err := b.OpenSaveFile(pkgName, backend.LockExclusive)
	if err != nil {
		if ucierr.Is(err, ucierr.NotFound) {
			return nil
		}
		return err
	}
	defer h.Close()

	sc := bufio.NewScanner(h)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	var kept []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		decoded, derr := delta.Decode(line)
		if derr != nil || !matches(decoded.Entry) {
			kept = append(kept, line)
		}
	}

	if _, err := h.Seek(0, io.SeekStart); err != nil {
		return ucierr.Wrap(ucierr.IO, "Revert", "seeking save file", err).WithPrefix(pkgName)
	}
	if err := h.Truncate(0); err != nil {
		return ucierr.Wrap(ucierr.IO, "Revert", "truncating save file", err).WithPrefix(pkgName)
	}
	for _, line := range kept {
		if _, err := io.WriteString(h, line+"\n"); err != nil {
			return ucierr.Wrap(ucierr.IO, "Revert", "rewriting save file", err).WithPrefix(pkgName)
		}
	}
	return nil
}

// ListConfigs enumerates the names available under the default backend.
func (c *Context) ListConfigs() ([]string, error) {
	b, err := c.Registry.Default()
	if err != nil {
		return nil, err
	}
	return b.ListConfigs()
}

// Import parses r and, unless opts.MergeInto is set, registers every
// resulting package into the context.
func (c *Context) Import(r io.Reader, opts format.ImportOptions) (*format.ImportResult, error) {
	res, err := format.Import(r, opts)
	if err != nil {
		return nil, err
	}
	if opts.MergeInto == nil {
		for _, p := range res.Packages {
			c.packages[p.Name] = p
		}
	}
	return res, nil
}

// Export serializes the named, already-loaded package to w.
func (c *Context) Export(w io.Writer, pkgName string, opts format.ExportOptions) error {
	pkg, ok := c.packages[pkgName]
	if !ok {
		return ucierr.New(ucierr.NotFound, "Export", "package not loaded: "+pkgName)
	}
	return format.Export(w, pkg, opts)
}
