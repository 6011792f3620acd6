// Package knowledge provides a file-backed FAQ store and the lookup tool
// that grounds assistant answers in it.
//
// Each *.txt file in the store directory is one policy document; the file
// name without extension is its lookup key. The store can watch the
// directory and pick up edits without a restart.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/parley-ai/parley/logging"
	"github.com/parley-ai/parley/tool"
)

// DefaultNotFoundMessage is returned by the lookup tool when no document
// matches the requested key.
const DefaultNotFoundMessage = "Policy not found. Please check with your Release Manager."

// Store holds policy documents loaded from a directory, keyed by file
// name stem. All methods are safe for concurrent use.
type Store struct {
	dir      string
	notFound string
	logger   logging.Logger

	mu   sync.RWMutex
	docs map[string]string
}

// Options configure a Store.
type Options struct {
	// NotFoundMessage overrides DefaultNotFoundMessage.
	NotFoundMessage string

	// Logger receives reload and watch events. Defaults to a no-op logger.
	Logger logging.Logger
}

// NewStore loads every *.txt document under dir. It fails if the
// directory cannot be read; an empty directory is fine.
func NewStore(dir string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		NotFoundMessage: DefaultNotFoundMessage,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		dir:      dir,
		notFound: opts.NotFoundMessage,
		logger:   opts.Logger,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the directory, replacing the document set atomically.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("knowledge: read dir %q: %w", s.dir, err)
	}

	docs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("knowledge: read %q: %w", entry.Name(), err)
		}
		key := normalizeKey(strings.TrimSuffix(entry.Name(), ".txt"))
		docs[key] = strings.TrimSpace(string(data))
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	s.logger.Debug("knowledge.reloaded", "dir", s.dir, "documents", len(docs))
	return nil
}

// Lookup returns the document for key. Keys are matched case-insensitively
// with surrounding whitespace ignored.
func (s *Store) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[normalizeKey(key)]
	return doc, ok
}

// Keys returns the sorted set of available document keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.docs))
	for key := range s.docs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of loaded documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Watch reloads the store whenever the directory changes. It blocks until
// ctx is cancelled; run it in its own goroutine. Reload failures are
// logged and the previous document set stays in effect.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("knowledge: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("knowledge: watch %q: %w", s.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.logger.Warn("knowledge.reload_failed", "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("knowledge.watch_error", "error", err)
		}
	}
}

// Tool returns the lookup_faq function tool backed by this store. A miss
// is reported as content, not as a tool error, so the reasoning engine can
// relay it instead of retrying.
func (s *Store) Tool() tool.Tool {
	return tool.NewFunctionTool(
		"lookup_faq",
		"Look up an internal policy document by its key, for example release-freeze or sev1-process.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "Policy document key to look up.",
				},
			},
			"required": []string{"key"},
		},
		func(_ context.Context, args map[string]any) (string, error) {
			key, _ := args["key"].(string)
			doc, ok := s.Lookup(key)
			if !ok {
				s.logger.Debug("knowledge.miss", "key", key)
				return s.notFound, nil
			}
			return doc, nil
		},
	)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
