package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

type memoryEntry struct {
	id     string
	text   string
	vector []float32
}

// MemoryStore is an in-memory vector store using brute-force inner product
// search, persisted to a single binary file. Suitable for small corpora;
// larger deployments should use the qdrant backend.
type MemoryStore struct {
	dimensions int
	path       string
	mu         sync.RWMutex
	entries    []memoryEntry
	ready      bool
}

// NewMemoryStore creates a memory store persisted at path. If an index file
// already exists there it is loaded; a missing file is not an error.
func NewMemoryStore(path string, dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	m := &MemoryStore{dimensions: dimensions, path: path}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Ready reports whether the store holds indexed chunks.
func (m *MemoryStore) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Count returns the number of indexed chunks.
func (m *MemoryStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Rebuild replaces the index with the given chunks. The new index is
// written to a temporary file and renamed over the old one before the
// in-memory contents are swapped, so a crash mid-rebuild leaves the
// previous index intact.
func (m *MemoryStore) Rebuild(ctx context.Context, chunks []models.Chunk) error {
	entries := make([]memoryEntry, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) != m.dimensions {
			return fmt.Errorf("chunk %s: embedding dimension mismatch: got %d, expected %d",
				c.ID, len(c.Embedding), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, c.Embedding)
		entries = append(entries, memoryEntry{id: c.ID, text: c.Content, vector: vec})
	}
	if err := m.save(entries); err != nil {
		return err
	}
	m.mu.Lock()
	m.entries = entries
	m.ready = len(entries) > 0
	m.mu.Unlock()
	return nil
}

// Search returns up to k hits by inner product, descending.
func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.entries) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(m.entries))
	for i, e := range m.entries {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * e.vector[j])
		}
		hits[i] = Hit{ID: e.id, Text: e.text, Score: dot}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

// save writes entries to a temp file and renames it over m.path.
// Format: dimensions (4), n (4), then per entry: idLen (4), id bytes,
// textLen (4), text bytes, vector (dimensions*4 bytes), little-endian.
func (m *MemoryStore) save(entries []memoryEntry) error {
	if m.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	err = func() error {
		if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
			return fmt.Errorf("write dimensions: %w", err)
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(entries))); err != nil {
			return fmt.Errorf("write count: %w", err)
		}
		for _, e := range entries {
			if err := writeBytes(f, []byte(e.id)); err != nil {
				return fmt.Errorf("write id: %w", err)
			}
			if err := writeBytes(f, []byte(e.text)); err != nil {
				return fmt.Errorf("write text: %w", err)
			}
			if _, err := f.Write(float32SliceToBytes(e.vector)); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
		return f.Sync()
	}()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

// load reads the index file at m.path, if present.
func (m *MemoryStore) load() error {
	if m.path == "" {
		return nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]memoryEntry, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		text, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		entries = append(entries, memoryEntry{
			id:     string(id),
			text:   string(text),
			vector: bytesToFloat32Slice(buf),
		})
	}
	m.mu.Lock()
	m.entries = entries
	m.ready = len(entries) > 0
	m.mu.Unlock()
	return nil
}

func writeBytes(f *os.File, b []byte) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

func readBytes(f *os.File) ([]byte, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
