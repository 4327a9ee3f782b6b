package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/MimeLyc/notebook-translator/internal/memory"
	"github.com/MimeLyc/notebook-translator/internal/segment"
)

// MemoryStore persists accepted translations between runs.
type MemoryStore interface {
	List(ctx context.Context, targetLanguage, variant string) ([]memory.Entry, error)
	Put(ctx context.Context, entries []memory.Entry) error
}

// runMemory is the view of a MemoryStore for one target language and variant,
// loaded once at the start of a run.
type runMemory struct {
	store    MemoryStore
	language string
	variant  string

	mu     sync.RWMutex
	cached map[string]string
}

func newRunMemory(ctx context.Context, store MemoryStore, language, variant string) (*runMemory, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}

	entries, err := store.List(ctx, language, variant)
	if err != nil {
		return nil, fmt.Errorf("load translation memory: %w", err)
	}

	cached := make(map[string]string, len(entries))
	for _, e := range entries {
		cached[memoryKey(e.Kind, e.Source)] = e.Translated
	}

	return &runMemory{
		store:    store,
		language: language,
		variant:  variant,
		cached:   cached,
	}, nil
}

func (m *runMemory) Lookup(kind segment.SpanKind, source string) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret, ok := m.cached[memoryKey(kind.String(), source)]
	return ret, ok
}

func (m *runMemory) Save(ctx context.Context, spans []segment.Span) error {
	if m == nil || len(spans) == 0 {
		return nil
	}

	entries := make([]memory.Entry, 0, len(spans))
	for _, s := range spans {
		entries = append(entries, memory.Entry{
			Key: memory.Key{
				TargetLanguage: m.language,
				Variant:        m.variant,
				Kind:           s.Kind.String(),
				Source:         s.Source,
			},
			Translated: s.Translated,
		})
	}
	if err := m.store.Put(ctx, entries); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.cached[memoryKey(e.Kind, e.Source)] = e.Translated
	}
	return nil
}

func memoryKey(kind, source string) string {
	return kind + "\x00" + source
}
