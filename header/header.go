// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package header prepends license headers to source files.
//
// An [Applicator] walks a directory tree and classifies every file in turn:
// files with an ignored name, an excluded path or an unknown extension are
// skipped, as are files that look binary (a NUL byte within the first
// [ProbeSize] bytes). The remaining files are processed: if they already
// contain a copyright marker they are left alone, otherwise the header of
// their [Category] is written in front of the existing content.
package header

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/natefinch/atomic"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"go.astrophena.name/addheader/logger"
)

// ProbeSize is the number of leading bytes inspected by the binary check.
const ProbeSize = 1024

// Outcome is the result of visiting a single file.
type Outcome int

const (
	// Skipped files were not eligible for a header. See [SkipReason].
	Skipped Outcome = iota
	// Updated files had a header prepended.
	Updated
	// WouldUpdate files would have a header prepended outside of a dry run.
	WouldUpdate
	// Covered files already contain a copyright marker.
	Covered
	// Failed files could not be read or written.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Updated:
		return "updated"
	case WouldUpdate:
		return "would update"
	case Covered:
		return "covered"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// SkipReason explains why a file was skipped.
type SkipReason int

// Reasons for skipping a file, in the order they are checked.
const (
	NotSkipped       SkipReason = iota
	IgnoredName                 // file name is in the ignore set
	Excluded                    // path matches an exclusion pattern
	UnknownExtension            // no category for the extension
	NotRegular                  // not a regular file, e.g. a FIFO or a link to a directory
	Binary                      // NUL byte in the probe window
)

func (r SkipReason) String() string {
	switch r {
	case NotSkipped:
		return "not skipped"
	case IgnoredName:
		return "ignored name"
	case Excluded:
		return "excluded"
	case UnknownExtension:
		return "unknown extension"
	case NotRegular:
		return "not a regular file"
	case Binary:
		return "binary"
	}
	return fmt.Sprintf("SkipReason(%d)", int(r))
}

// Result describes what happened to a single file.
type Result struct {
	// Path is the file path, as produced by walking the root directory.
	Path string
	// Category is the category of the file, if its extension is known.
	Category Category
	// Processed reports whether the file passed classification and was
	// considered for a header.
	Processed bool
	// Outcome is what happened to the file.
	Outcome Outcome
	// Reason is set for skipped files.
	Reason SkipReason
	// Err is set for failed files.
	Err error
}

// Summary counts the results of one run.
type Summary struct {
	// Processed counts files that passed classification.
	Processed int
	// Updated counts files that got a header, or would get one in a dry run.
	Updated int
	// Skipped counts files that were skipped or failed.
	Skipped int
	// Covered counts processed files that already had a copyright marker.
	Covered int
	// Failed counts files with read or write errors. They are included in
	// Skipped.
	Failed int
}

func (s *Summary) add(r Result) {
	if r.Processed {
		s.Processed++
	}
	switch r.Outcome {
	case Updated, WouldUpdate:
		s.Updated++
	case Covered:
		s.Covered++
	case Skipped:
		s.Skipped++
	case Failed:
		s.Failed++
		s.Skipped++
	}
}

// Applicator adds headers to the files of a directory tree.
type Applicator struct {
	// Config is the configuration to apply. Required.
	Config *Config
	// DryRun disables writing; files that need a header are reported as
	// WouldUpdate.
	DryRun bool
	// Report, if set, is called with the result of every visited file.
	Report func(Result)
}

// Apply walks the tree rooted at root and adds headers where needed.
//
// Errors on individual files never stop the walk; they are logged and
// reported as Failed results. A root that does not exist or is not a
// directory yields an empty Summary. Apply returns an error only if the root
// itself can't be read or ctx is canceled; the Summary then covers the
// files visited so far.
func (a *Applicator) Apply(ctx context.Context, root string) (Summary, error) {
	var sum Summary

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "root directory does not exist", slog.String("path", root))
		return sum, nil
	}
	if err != nil {
		return sum, err
	}
	if !info.IsDir() {
		logger.Warn(ctx, "root is not a directory", slog.String("path", root))
		return sum, nil
	}

	// WalkDir doesn't follow a symbolic link at the root, unless the path
	// ends with a separator.
	if fi, err := os.Lstat(root); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		root += string(filepath.Separator)
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Error(ctx, "cannot read directory", slog.String("path", path), logger.Err(err))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			if a.Config.IgnoresDir(d.Name()) || a.Config.Excludes(relPath(root, path)) {
				logger.Debug(ctx, "pruned directory", slog.String("path", path))
				return fs.SkipDir
			}
			return nil
		}

		res := a.visit(root, path, d)
		sum.add(res)
		switch res.Outcome {
		case Failed:
			logger.Error(ctx, "cannot process file", slog.String("path", path), logger.Err(res.Err))
		case Skipped:
			logger.Debug(ctx, "skipped file", slog.String("path", path), slog.String("reason", res.Reason.String()))
		}
		if a.Report != nil {
			a.Report(res)
		}
		return nil
	})
	return sum, err
}

// visit classifies a single file and, if needed, prepends the header.
// Checks are ordered from cheapest to most expensive.
func (a *Applicator) visit(root, path string, d fs.DirEntry) Result {
	res := Result{Path: path}
	skip := func(reason SkipReason) Result {
		res.Outcome, res.Reason = Skipped, reason
		return res
	}
	fail := func(err error) Result {
		res.Outcome, res.Err = Failed, err
		return res
	}

	if a.Config.IgnoresFile(d.Name()) {
		return skip(IgnoredName)
	}
	if a.Config.Excludes(relPath(root, path)) {
		return skip(Excluded)
	}
	cat, ok := a.Config.Category(d.Name())
	if !ok {
		return skip(UnknownExtension)
	}
	res.Category = cat

	// Follows symbolic links.
	info, err := os.Stat(path)
	if err != nil {
		return fail(err)
	}
	if !info.Mode().IsRegular() {
		return skip(NotRegular)
	}

	binary, err := isBinary(path)
	if err != nil {
		return fail(err)
	}
	if binary {
		return skip(Binary)
	}
	res.Processed = true

	content, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	year := a.Config.Year()
	if a.Config.YearFromModTime() {
		year = info.ModTime().Year()
	}
	if a.Config.HasMarker(decodeText(content), year) {
		res.Outcome = Covered
		return res
	}

	hdr, err := a.Config.Header(cat, year)
	if err != nil {
		return fail(err)
	}

	if a.DryRun {
		res.Outcome = WouldUpdate
		return res
	}
	if err := prepend(path, info.Mode(), hdr, content); err != nil {
		return fail(err)
	}
	res.Outcome = Updated
	return res
}

// isBinary reports whether the first ProbeSize bytes of the file contain a
// NUL byte.
func isBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, ProbeSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return bytes.IndexByte(buf[:n], 0) >= 0, nil
}

// dropInvalid removes bytes that are not valid UTF-8, so a marker split by
// a stray byte still matches.
var dropInvalid = runes.Remove(runes.Predicate(func(r rune) bool { return r == utf8.RuneError }))

// decodeText returns b as UTF-8 text with invalid bytes dropped.
func decodeText(b []byte) []byte {
	text, _, err := transform.Bytes(dropInvalid, b)
	if err != nil {
		return b
	}
	return text
}

// prepend replaces the file at path with hdr followed by content. The new
// content is written to a temporary file with the original mode, which is
// then renamed over the file, so readers never see a partial write or a
// changed mode. Symbolic links are resolved first and stay in place.
func prepend(path string, mode fs.FileMode, hdr, content []byte) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	tmp, err := writeTemp(target, mode, hdr, content)
	if err != nil {
		return err
	}
	if err := atomic.ReplaceFile(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// writeTemp writes chunks to a new file next to target and returns its name.
// The file has the permission bits of mode.
func writeTemp(target string, mode fs.FileMode, chunks ...[]byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".addheader-*")
	if err != nil {
		return "", err
	}
	err = f.Chmod(mode.Perm())
	for _, c := range chunks {
		if err != nil {
			break
		}
		_, err = f.Write(c)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
