// Package converter turns binary files into generated C++ sources on disk.
package converter

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/qaartru2266-jpg/hxc143/internal/emitter"
)

// ErrStale is returned by Verify when the generated file does not match its source.
var ErrStale = errors.New("generated source is stale")

// Job describes a single conversion.
type Job struct {
	// Source is the path of the binary input.
	Source string
	// Output is the path of the generated source.
	Output string
	// Options controls the generated declarations.
	Options emitter.Options
}

// Result reports the outcome of a conversion.
type Result struct {
	Source string
	Output string
	// Size is the number of bytes read from Source.
	Size int
	// Changed is false when Output already held the generated text and was left untouched.
	Changed bool
}

// Convert reads src fully, renders it, and writes the result to dst.
// The destination is replaced atomically and is not rewritten when its content
// is already up to date, so its modification time only moves on real changes.
// Symlinks are written through, and a read-only destination is an error.
//
// Read errors are reported as "failed to read <src>" and write errors as
// "failed to write <dst>"; the underlying error is wrapped.
func Convert(src, dst string, opts emitter.Options) (Result, error) {
	res := Result{Source: src, Output: dst}

	data, err := os.ReadFile(src)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", src, err)
	}
	res.Size = len(data)

	out, err := emitter.Render(data, opts)
	if err != nil {
		return res, err
	}

	if existing, err := os.ReadFile(dst); err == nil && bytes.Equal(existing, out) {
		slog.Debug("output up to date", "source", src, "output", dst, "bytes", len(data))
		return res, nil
	}

	if err := writeOutput(dst, out); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	res.Changed = true
	slog.Debug("wrote output", "source", src, "output", dst, "bytes", len(data))
	return res, nil
}

// Run executes a job.
func (j Job) Run() (Result, error) {
	return Convert(j.Source, j.Output, j.Options)
}

// RunAll executes jobs in order, calling report after each one.
// It does not stop at the first failure; all errors are returned joined.
func RunAll(jobs []Job, report func(Result, error)) error {
	var errs []error
	for _, job := range jobs {
		res, err := job.Run()
		if report != nil {
			report(res, err)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Verify reports whether dst holds exactly what Convert would write for src.
// It returns nil when up to date, an error wrapping ErrStale when not, and
// the read error when src cannot be read.
func Verify(src, dst string, opts emitter.Options) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	want, err := emitter.Render(data, opts)
	if err != nil {
		return err
	}

	got, err := os.ReadFile(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s does not exist", ErrStale, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dst, err)
	}
	if bytes.Equal(got, want) {
		return nil
	}

	doc, perr := emitter.Parse(bytes.NewReader(got))
	switch {
	case errors.Is(perr, emitter.ErrMalformed):
		return fmt.Errorf("%w: %s is not a generated byte array: %v", ErrStale, dst, perr)
	case doc != nil && doc.Length != len(data):
		return fmt.Errorf("%w: %s declares %d bytes, %s has %d", ErrStale, dst, doc.Length, src, len(data))
	case doc != nil && !bytes.Equal(doc.Data, data):
		return fmt.Errorf("%w: %s content differs from %s", ErrStale, dst, src)
	default:
		return fmt.Errorf("%w: %s formatting differs from the requested options", ErrStale, dst)
	}
}

// writeOutput replaces the content of path with data.
//
// A symlinked destination is written through to its target, an existing
// destination keeps its permission bits, and a destination without write
// permission is an error. The new content is written to a temporary file next
// to the target and renamed into place; when that directory is not writable
// but the file is, the file is truncated and rewritten in place.
func writeOutput(path string, data []byte) error {
	target := path
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		target = resolved
	} else if info, lerr := os.Lstat(path); lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
		// Dangling link: create its target through the link.
		return os.WriteFile(path, data, 0644)
	}

	perm := os.FileMode(0644)
	info, err := os.Stat(target)
	switch {
	case err == nil:
		if info.IsDir() {
			return &fs.PathError{Op: "write", Path: path, Err: errors.New("is a directory")}
		}
		if info.Mode().Perm()&0222 == 0 {
			return &fs.PathError{Op: "write", Path: path, Err: fs.ErrPermission}
		}
		f, err := os.OpenFile(target, os.O_WRONLY, 0)
		if err != nil {
			return err
		}
		f.Close()
		perm = info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	err = writeFileAtomic(target, data, perm)
	if errors.Is(err, fs.ErrPermission) && info != nil {
		slog.Debug("output directory not writable, rewriting in place", "output", target)
		return writeInPlace(target, data)
	}
	return err
}

// writeInPlace truncates path and writes data to it.
func writeInPlace(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeFileAtomic writes data to a temporary file next to path, syncs it, and
// renames it into place. The temporary file is removed if any step fails.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	f, err := os.CreateTemp(dir, "."+base+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	var success bool
	defer func() {
		if !success {
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	success = true
	return nil
}
