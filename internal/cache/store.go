package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	invjs "github.com/invopop/jsonschema"
	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/usestring/chunkgrep/internal/result"
	"github.com/usestring/chunkgrep/pkg/types"
)

// DefaultMaxEntries bounds the in-memory map.
const DefaultMaxEntries = 1024

const snapshotVersion = 1

// Entry is one cached result.
type Entry struct {
	Result    *result.Snapshot `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
}

// document is the on-disk form of the whole cache.
type document struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Store is an LRU-bounded map of entries that rewrites its snapshot file after
// every mutation. An empty path keeps the store in memory only.
type Store struct {
	entries *lru.Cache[string, Entry]
	path    string
	schema  *jsonschema.Schema

	mu sync.Mutex // serializes snapshot rewrites
}

// NewStore creates a store and loads the snapshot at path if there is one.
// A snapshot that cannot be used is logged and the store starts empty.
func NewStore(path string, maxEntries int) (*Store, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	schema, err := compileSnapshotSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling cache snapshot schema: %w", err)
	}

	s := &Store{entries: entries, path: path, schema: schema}
	if path == "" {
		return s, nil
	}

	n, err := s.load()
	switch {
	case err == nil:
		slog.Debug("cache snapshot loaded", slog.String("path", path), slog.Int("entries", n))
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no cache snapshot yet", slog.String("path", path))
	default:
		slog.Warn("starting with empty cache", slog.String("error", err.Error()))
	}
	return s, nil
}

// Get returns the entry for key and marks it recently used.
func (s *Store) Get(key string) (Entry, bool) {
	return s.entries.Get(key)
}

// Put inserts or replaces the entry for key and persists the store.
func (s *Store) Put(key string, e Entry) {
	s.entries.Add(key, e)
	s.persist()
}

// Delete removes key and persists the store.
func (s *Store) Delete(key string) {
	if s.entries.Remove(key) {
		s.persist()
	}
}

// Purge removes every entry and returns how many there were.
func (s *Store) Purge() int {
	n := s.entries.Len()
	s.entries.Purge()
	s.persist()
	return n
}

// Len returns the number of entries held in memory.
func (s *Store) Len() int {
	return s.entries.Len()
}

// Path returns the snapshot path, or "" for a memory-only store.
func (s *Store) Path() string {
	return s.path
}

// persist rewrites the snapshot. Failures are logged; the in-memory state stays authoritative.
func (s *Store) persist() {
	if s.path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{Version: snapshotVersion, Entries: make(map[string]Entry, s.entries.Len())}
	for _, k := range s.entries.Keys() {
		if e, ok := s.entries.Peek(k); ok {
			doc.Entries[k] = e
		}
	}
	if err := s.save(doc); err != nil {
		slog.Warn("cache snapshot not saved", slog.String("error", err.Error()))
	}
}

func (s *Store) save(doc document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &types.CachePersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if s.compressed() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return &types.CachePersistenceError{Op: "save", Path: s.path, Err: err}
		}
		data = enc.EncodeAll(data, nil)
		_ = enc.Close()
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return &types.CachePersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

// load reads the snapshot into memory and returns the number of entries kept.
// Older entries are inserted first so the newest survive LRU eviction.
func (s *Store) load() (int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: err}
	}
	if s.compressed() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: err}
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: fmt.Errorf("decompressing: %w", err)}
		}
	}

	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: fmt.Errorf("decoding: %w", err)}
	}
	if err := s.schema.Validate(value); err != nil {
		return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: fmt.Errorf("validating: %w", err)}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: fmt.Errorf("decoding: %w", err)}
	}
	if doc.Version != snapshotVersion {
		return 0, &types.CachePersistenceError{Op: "load", Path: s.path, Err: fmt.Errorf("unsupported version %d", doc.Version)}
	}

	keys := make([]string, 0, len(doc.Entries))
	for k := range doc.Entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return doc.Entries[a].CreatedAt.Compare(doc.Entries[b].CreatedAt)
	})
	for _, k := range keys {
		s.entries.Add(k, doc.Entries[k])
	}
	return s.entries.Len(), nil
}

func (s *Store) compressed() bool {
	return strings.HasSuffix(s.path, ".zst")
}

// writeFileAtomic writes data to a temporary file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// compileSnapshotSchema reflects a JSON Schema from document and compiles it
// for validating snapshots read back from disk.
func compileSnapshotSchema() (*jsonschema.Schema, error) {
	r := &invjs.Reflector{DoNotReference: true, Anonymous: true}
	reflected := r.Reflect(&document{})

	raw, err := json.Marshal(reflected)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	var schemaValue any
	if err := json.Unmarshal(raw, &schemaValue); err != nil {
		return nil, fmt.Errorf("unmarshaling schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("cache-snapshot.json", schemaValue); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	return compiler.Compile("cache-snapshot.json")
}
