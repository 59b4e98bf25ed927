package converter

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/qaartru2266-jpg/hxc143/internal/emitter"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "model.tflite")
	dst := filepath.Join(dir, "model_data.cc")
	writeFile(t, src, []byte{0x00, 0x01, 0xFF})

	res, err := Convert(src, dst, emitter.DefaultOptions())
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if diff := cmp.Diff(Result{Source: src, Output: dst, Size: 3, Changed: true}, res); diff != "" {
		t.Errorf("Convert() result mismatch (-want +got):\n%s", diff)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "0x00,0x01,0xff,") {
		t.Errorf("output missing values:\n%s", got)
	}
	if !strings.Contains(string(got), "const unsigned int g_model_len = 3;\n") {
		t.Errorf("output missing length:\n%s", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected only source and output in %s, found %d entries", dir, len(entries))
	}
}

func TestConvert_EmptySource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.bin")
	dst := filepath.Join(dir, "empty.cc")
	writeFile(t, src, nil)

	res, err := Convert(src, dst, emitter.DefaultOptions())
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if res.Size != 0 {
		t.Errorf("Size = %d, want 0", res.Size)
	}
	got, _ := os.ReadFile(dst)
	if !strings.HasSuffix(string(got), "= {\n\n};\nconst unsigned int g_model_len = 0;\n") {
		t.Errorf("unexpected output for empty source:\n%s", got)
	}
}

func TestConvert_Idempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	dst := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte(strings.Repeat("abcdefg", 100)))

	if _, err := Convert(src, dst, emitter.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(dst)

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(dst, old, old); err != nil {
		t.Fatal(err)
	}

	res, err := Convert(src, dst, emitter.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed {
		t.Error("second Convert() reported a change")
	}
	second, _ := os.ReadFile(dst)
	if string(first) != string(second) {
		t.Error("second Convert() produced different output")
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("up-to-date output was rewritten: mtime %v, want %v", info.ModTime(), old)
	}
}

func TestConvert_OverwritesStaleOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	dst := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{1, 2})
	writeFile(t, dst, []byte("stale"))

	res, err := Convert(src, dst, emitter.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed {
		t.Error("Convert() did not report a change")
	}
	if err := Verify(src, dst, emitter.DefaultOptions()); err != nil {
		t.Errorf("Verify() after Convert() = %v", err)
	}
}

func TestConvert_MissingSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "missing.bin")
	dst := filepath.Join(dir, "out.cc")

	_, err := Convert(src, dst, emitter.DefaultOptions())
	if err == nil {
		t.Fatal("Convert() expected error")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not wrap fs.ErrNotExist", err)
	}
	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error = %q, want read failure", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Error("output created despite read failure")
	}
}

func TestConvert_UnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	writeFile(t, src, []byte{1})
	dst := filepath.Join(dir, "no", "such", "dir", "out.cc")

	_, err := Convert(src, dst, emitter.DefaultOptions())
	if err == nil {
		t.Fatal("Convert() expected error")
	}
	if !strings.Contains(err.Error(), "failed to write") {
		t.Errorf("error = %q, want write failure", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not wrap fs.ErrNotExist", err)
	}
}

func TestConvert_InvalidOptions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	writeFile(t, src, []byte{1})

	_, err := Convert(src, filepath.Join(dir, "out.cc"), emitter.Options{Symbol: "bad-name"})
	if !errors.Is(err, emitter.ErrInvalidOptions) {
		t.Errorf("Convert() error = %v, want ErrInvalidOptions", err)
	}
}

func TestRunAll(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.bin"), []byte{0xaa})
	writeFile(t, filepath.Join(dir, "c.bin"), []byte{0xcc})

	jobs := []Job{
		{Source: filepath.Join(dir, "a.bin"), Output: filepath.Join(dir, "a.cc"), Options: emitter.DefaultOptions()},
		{Source: filepath.Join(dir, "b.bin"), Output: filepath.Join(dir, "b.cc"), Options: emitter.DefaultOptions()},
		{Source: filepath.Join(dir, "c.bin"), Output: filepath.Join(dir, "c.cc"), Options: emitter.DefaultOptions()},
	}

	var reported []string
	err := RunAll(jobs, func(res Result, err error) {
		status := "ok"
		if err != nil {
			status = "fail"
		}
		reported = append(reported, filepath.Base(res.Output)+":"+status)
	})
	if err == nil {
		t.Fatal("RunAll() expected error for missing b.bin")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("RunAll() error %v does not wrap fs.ErrNotExist", err)
	}
	if diff := cmp.Diff([]string{"a.cc:ok", "b.cc:fail", "c.cc:ok"}, reported); diff != "" {
		t.Errorf("reports mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.cc")); err != nil {
		t.Errorf("job after failure did not run: %v", err)
	}
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	dst := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{1, 2, 3, 4})

	if err := Verify(src, dst, emitter.DefaultOptions()); !errors.Is(err, ErrStale) {
		t.Errorf("Verify() on missing output = %v, want ErrStale", err)
	}

	if _, err := Convert(src, dst, emitter.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	if err := Verify(src, dst, emitter.DefaultOptions()); err != nil {
		t.Errorf("Verify() after Convert() = %v", err)
	}

	tests := []struct {
		name    string
		source  []byte
		opts    emitter.Options
		wantMsg string
	}{
		{name: "grown source", source: []byte{1, 2, 3, 4, 5}, opts: emitter.DefaultOptions(), wantMsg: "declares 4 bytes"},
		{name: "changed byte", source: []byte{1, 2, 3, 5}, opts: emitter.DefaultOptions(), wantMsg: "content differs"},
		{name: "other options", source: []byte{1, 2, 3, 4}, opts: emitter.Options{Symbol: "g_other", Align: 16}, wantMsg: "formatting differs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writeFile(t, src, tt.source)
			err := Verify(src, dst, tt.opts)
			if !errors.Is(err, ErrStale) {
				t.Fatalf("Verify() = %v, want ErrStale", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Verify() = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}

	writeFile(t, dst, []byte("// hand written\n"))
	if err := Verify(src, dst, emitter.DefaultOptions()); !errors.Is(err, ErrStale) || !strings.Contains(err.Error(), "not a generated") {
		t.Errorf("Verify() on foreign file = %v", err)
	}
}

func TestConvert_WritesThroughSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	target := filepath.Join(dir, "generated", "blob.cc")
	link := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{1, 2, 3})
	writeFile(t, target, []byte("old"))
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := Convert(src, link, emitter.DefaultOptions()); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	info, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		t.Error("destination symlink was replaced by a regular file")
	}
	if err := Verify(src, target, emitter.DefaultOptions()); err != nil {
		t.Errorf("symlink target not regenerated: %v", err)
	}
}

func TestConvert_DanglingSymlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	target := filepath.Join(dir, "target.cc")
	link := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{7})
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, err := Convert(src, link, emitter.DefaultOptions()); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if err := Verify(src, target, emitter.DefaultOptions()); err != nil {
		t.Errorf("link target not created: %v", err)
	}
}

func TestConvert_ReadOnlyDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	dst := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{1, 2, 3})
	writeFile(t, dst, []byte("old"))
	if err := os.Chmod(dst, 0444); err != nil {
		t.Fatal(err)
	}

	_, err := Convert(src, dst, emitter.DefaultOptions())
	if err == nil {
		t.Fatal("Convert() into a read-only destination expected error")
	}
	if !errors.Is(err, fs.ErrPermission) || !strings.Contains(err.Error(), "failed to write") {
		t.Errorf("Convert() error = %v, want a write permission error", err)
	}

	got, _ := os.ReadFile(dst)
	if string(got) != "old" {
		t.Errorf("read-only destination was modified: %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0444 {
		t.Errorf("mode = %v, want -r--r--r--", info.Mode().Perm())
	}
}

func TestConvert_PreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	dst := filepath.Join(dir, "blob.cc")
	writeFile(t, src, []byte{1})
	writeFile(t, dst, []byte("old"))
	if err := os.Chmod(dst, 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Convert(src, dst, emitter.DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want -rw-------", info.Mode().Perm())
	}
}

func TestConvert_ReadOnlyDirectoryWritableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "blob.bin")
	outDir := filepath.Join(dir, "out")
	dst := filepath.Join(outDir, "blob.cc")
	writeFile(t, src, []byte{1, 2})
	writeFile(t, dst, []byte("old"))
	if err := os.Chmod(outDir, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(outDir, 0755) })

	if _, err := Convert(src, dst, emitter.DefaultOptions()); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if err := Verify(src, dst, emitter.DefaultOptions()); err != nil {
		t.Errorf("destination not rewritten: %v", err)
	}
}
