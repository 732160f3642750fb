package testutil

import (
	"sync"

	"savekeep/internal/sk"
)

// FaultyReplacer wraps a real DirectoryReplacer and fails selected calls.
// A non-nil error field makes every call of that method fail without
// touching the filesystem.
type FaultyReplacer struct {
	sk.DirectoryReplacer

	mu          sync.Mutex
	CopyErr     error
	DeleteErr   error
	CopyFlagErr error

	copies   int
	replaces int
}

// NewFaultyReplacer wraps inner. With no error fields set it behaves like inner.
func NewFaultyReplacer(inner sk.DirectoryReplacer) *FaultyReplacer {
	return &FaultyReplacer{DirectoryReplacer: inner}
}

func (r *FaultyReplacer) Copy(src, dst string) error {
	r.mu.Lock()
	r.copies++
	err := r.CopyErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.DirectoryReplacer.Copy(src, dst)
}

func (r *FaultyReplacer) Delete(dir string) error {
	r.mu.Lock()
	err := r.DeleteErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.DirectoryReplacer.Delete(dir)
}

func (r *FaultyReplacer) CopyFlag(src, dst string) error {
	r.mu.Lock()
	err := r.CopyFlagErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.DirectoryReplacer.CopyFlag(src, dst)
}

// Replace runs Delete then Copy through the faulty methods, so CopyErr and
// DeleteErr apply to replacements too.
func (r *FaultyReplacer) Replace(src, dst string) error {
	r.mu.Lock()
	r.replaces++
	r.mu.Unlock()
	if err := r.Delete(dst); err != nil {
		return err
	}
	return r.Copy(src, dst)
}

// Replaces returns the number of Replace calls made so far.
func (r *FaultyReplacer) Replaces() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaces
}

// Copies returns the number of Copy calls made so far.
func (r *FaultyReplacer) Copies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copies
}

var _ sk.DirectoryReplacer = (*FaultyReplacer)(nil)
