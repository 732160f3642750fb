package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"savekeep/internal/sk"
)

// OSDirectoryReplacer is the real filesystem implementation of
// sk.DirectoryReplacer.
type OSDirectoryReplacer struct {
	logger sk.Logger

	// removeAll and removeDir are os.RemoveAll and os.Remove outside tests.
	removeAll func(path string) error
	removeDir func(path string) error
}

// NewOSDirectoryReplacer creates a replacer operating on the real filesystem.
func NewOSDirectoryReplacer(logger sk.Logger) *OSDirectoryReplacer {
	return &OSDirectoryReplacer{
		logger:    logger,
		removeAll: os.RemoveAll,
		removeDir: os.Remove,
	}
}

// Delete removes dir. When a plain recursive remove fails, it mirrors an
// empty directory onto dir, which forces every parent writable while
// clearing it, and then normalizes permissions and retries as a last resort.
func (r *OSDirectoryReplacer) Delete(dir string) error {
	if _, err := os.Lstat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	firstErr := r.removeAll(dir)
	if firstErr == nil {
		return nil
	}
	r.logger.Warn("plain delete failed, mirroring empty directory", "dir", dir, "error", firstErr)

	err := r.mirrorEmpty(dir)
	if err == nil {
		return nil
	}
	r.logger.Warn("mirror delete failed, normalizing permissions", "dir", dir, "error", err)

	if err := normalizeModes(dir); err != nil {
		r.logger.Debug("normalizing permissions incomplete", "dir", dir, "error", err)
	}
	if err := r.removeAll(dir); err != nil {
		r.logger.Error("delete failed after all fallbacks", "dir", dir, "first_error", firstErr, "error", err)
		return fmt.Errorf("%w: %s: %w", sk.ErrDeleteFailed, dir, err)
	}
	return nil
}

// mirrorEmpty syncs dir to a freshly created empty directory and then
// removes the emptied dir.
func (r *OSDirectoryReplacer) mirrorEmpty(dir string) error {
	empty, err := os.MkdirTemp("", "savekeep-empty-*")
	if err != nil {
		return fmt.Errorf("creating empty reference directory: %w", err)
	}
	defer os.Remove(empty)

	if err := mirror(empty, dir); err != nil {
		return err
	}
	if err := makeWritable(filepath.Dir(dir)); err != nil {
		return err
	}
	return r.removeDir(dir)
}

// mirror removes every entry of dst that has no counterpart in src,
// recursing into directories present on both sides.
func mirror(src, dst string) error {
	if err := makeWritable(dst); err != nil {
		return err
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dst, err)
	}
	for _, e := range entries {
		target := filepath.Join(dst, e.Name())
		counterpart := filepath.Join(src, e.Name())
		_, statErr := os.Lstat(counterpart)
		present := statErr == nil

		if e.IsDir() {
			if err := mirror(counterpart, target); err != nil {
				return err
			}
			if !present {
				if err := os.Remove(target); err != nil {
					return fmt.Errorf("removing %s: %w", target, err)
				}
			}
			continue
		}
		if present {
			continue
		}
		if e.Type().IsRegular() {
			_ = os.Chmod(target, 0644)
		}
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("removing %s: %w", target, err)
		}
	}
	return nil
}

// normalizeModes resets every entry under dir to 0755 for directories and
// 0644 for files, continuing past failures.
func normalizeModes(dir string) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	record(makeWritable(filepath.Dir(dir)))
	record(os.Chmod(dir, 0755))

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			record(err)
			return nil
		}
		switch {
		case d.IsDir():
			record(os.Chmod(path, 0755))
		case d.Type().IsRegular():
			record(os.Chmod(path, 0644))
		}
		return nil
	})
	record(walkErr)
	return firstErr
}

func makeWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if info.Mode().Perm()&0700 == 0700 {
		return nil
	}
	if err := os.Chmod(dir, info.Mode().Perm()|0700); err != nil {
		return fmt.Errorf("making %s writable: %w", dir, err)
	}
	return nil
}

// Copy recursively copies src onto dst. Existing files are overwritten,
// including read-only ones. File modes and modification times are kept so
// that copied payloads still match their source. Symlinks, devices, pipes
// and sockets are skipped.
func (r *OSDirectoryReplacer) Copy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("%w: stat source: %w", sk.ErrCopyFailed, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source is not a directory: %s", sk.ErrCopyFailed, src)
	}

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("calculating relative path: %w", err)
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			fi, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			return os.MkdirAll(target, fi.Mode().Perm()|0700)
		}
		if !d.Type().IsRegular() {
			r.logger.Debug("skipping non-regular file", "path", path)
			return nil
		}
		return copyFile(path, target)
	})
	if err != nil {
		return fmt.Errorf("%w: %s to %s: %w", sk.ErrCopyFailed, src, dst, err)
	}
	return nil
}

// Replace deletes dst and copies src onto it.
func (r *OSDirectoryReplacer) Replace(src, dst string) error {
	if err := r.Delete(dst); err != nil {
		return err
	}
	return r.Copy(src, dst)
}

// CopyFlag copies a single file. The read-only bit is cleared on the source
// first and on an existing destination, and the destination's parent is
// created. Permission failures keep their fs.ErrPermission identity.
func (r *OSDirectoryReplacer) CopyFlag(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat flag file: %w", err)
	}
	if info.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(src, info.Mode().Perm()|0200); err != nil {
			return fmt.Errorf("clearing read-only on flag file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating flag directory: %w", err)
	}
	if existing, err := os.Stat(dst); err == nil && existing.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(dst, 0644); err != nil {
			return fmt.Errorf("clearing read-only on flag destination: %w", err)
		}
	}
	return copyFile(src, dst)
}

// Size sums the sizes of regular files under dir.
func (r *OSDirectoryReplacer) Size(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", dir, err)
	}
	return total, nil
}

// copyFile copies src to dst, replacing dst, and carries over the mode and
// modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if existing, err := os.Lstat(dst); err == nil && existing.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(dst, existing.Mode().Perm()|0600); err != nil {
			return fmt.Errorf("clearing read-only on %s: %w", dst, err)
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode on %s: %w", dst, err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("setting times on %s: %w", dst, err)
	}
	return nil
}

// Compile-time check that OSDirectoryReplacer implements sk.DirectoryReplacer
var _ sk.DirectoryReplacer = (*OSDirectoryReplacer)(nil)
