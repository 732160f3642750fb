package testutil

import (
	"context"
	"path/filepath"
	"sync"

	"savekeep/internal/sk"
)

// StubExtractor returns character names keyed by the base name of the
// profile directory holding the payload. Unknown profiles yield Err, or ""
// when Err is nil.
type StubExtractor struct {
	mu    sync.Mutex
	Names map[string]string
	Err   error
	calls map[string]int
}

func NewStubExtractor(names map[string]string) *StubExtractor {
	if names == nil {
		names = map[string]string{}
	}
	return &StubExtractor{Names: names, calls: map[string]int{}}
}

func (e *StubExtractor) ExtractCharacterName(_ context.Context, savePath string) (string, error) {
	profileID := filepath.Base(filepath.Dir(savePath))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[profileID]++
	if name, ok := e.Names[profileID]; ok {
		return name, nil
	}
	return "", e.Err
}

// Calls returns how often a profile was run through extraction.
func (e *StubExtractor) Calls(profileID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[profileID]
}

var _ sk.NameExtractor = (*StubExtractor)(nil)
