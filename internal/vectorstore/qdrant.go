package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kotae/internal/models"
)

// QdrantConfig holds connection settings for a Qdrant instance.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimensions int
	Timeout    time.Duration
}

// QdrantStore is a REST client to Qdrant. The configured collection name is
// an alias; Rebuild indexes into a fresh timestamped collection and swaps
// the alias over, so searches never observe a half-built index.
type QdrantStore struct {
	url        string
	apiKey     string
	alias      string
	dimensions int
	client     *http.Client

	mu    sync.RWMutex
	count int
	ready bool
}

// NewQdrantStore connects to Qdrant and checks for an existing collection
// behind the alias. An unreachable server is an error; a missing collection
// is not (the store just starts not ready).
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url not set")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s := &QdrantStore{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		alias:      cfg.Collection,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: timeout},
	}
	if n, err := s.fetchCount(context.Background()); err == nil {
		s.count = n
		s.ready = n > 0
	}
	return s, nil
}

// Ready reports whether a populated collection exists behind the alias.
func (s *QdrantStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Count returns the number of indexed chunks.
func (s *QdrantStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

const upsertBatchSize = 128

// Rebuild indexes chunks into a new collection and atomically repoints the
// alias at it, then drops the superseded collections.
func (s *QdrantStore) Rebuild(ctx context.Context, chunks []models.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return fmt.Errorf("chunk %s: embedding dimension mismatch: got %d, expected %d",
				c.ID, len(c.Embedding), s.dimensions)
		}
	}

	name := fmt.Sprintf("%s_%d", s.alias, time.Now().UnixNano())
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	if err := s.putJSON(ctx, fmt.Sprintf("%s/collections/%s", s.url, name), body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]map[string]any, 0, end-start)
		for _, c := range chunks[start:end] {
			points = append(points, map[string]any{
				"id":     uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.ID)).String(),
				"vector": c.Embedding,
				"payload": map[string]any{
					"chunk_id": c.ID,
					"text":     c.Content,
				},
			})
		}
		upsert := map[string]any{"points": points}
		url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, name)
		if err := s.putJSON(ctx, url, upsert, nil); err != nil {
			return fmt.Errorf("upsert points: %w", err)
		}
	}

	if err := s.swapAlias(ctx, name); err != nil {
		return err
	}
	s.dropStale(ctx, name)

	s.mu.Lock()
	s.count = len(chunks)
	s.ready = len(chunks) > 0
	s.mu.Unlock()
	return nil
}

// Search queries the aliased collection. Threshold filtering is the
// caller's concern; all k hits are returned.
func (s *QdrantStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimensions)
	}
	if k <= 0 || !s.Ready() {
		return nil, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.alias)
	if err := s.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := Hit{Score: r.Score}
		if v, ok := r.Payload["chunk_id"].(string); ok {
			h.ID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			h.Text = v
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close is a no-op for QdrantStore.
func (s *QdrantStore) Close() error {
	return nil
}

func (s *QdrantStore) swapAlias(ctx context.Context, target string) error {
	body := map[string]any{
		"actions": []map[string]any{
			{"delete_alias": map[string]any{"alias_name": s.alias}},
			{"create_alias": map[string]any{"collection_name": target, "alias_name": s.alias}},
		},
	}
	if err := s.postJSON(ctx, s.url+"/collections/aliases", body, nil); err == nil {
		return nil
	}
	// First alias creation: delete_alias fails when the alias never existed.
	body = map[string]any{
		"actions": []map[string]any{
			{"create_alias": map[string]any{"collection_name": target, "alias_name": s.alias}},
		},
	}
	if err := s.postJSON(ctx, s.url+"/collections/aliases", body, nil); err != nil {
		return fmt.Errorf("swap alias: %w", err)
	}
	return nil
}

// dropStale deletes superseded timestamped collections. Best effort.
func (s *QdrantStore) dropStale(ctx context.Context, keep string) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.getJSON(ctx, s.url+"/collections", &resp); err != nil {
		return
	}
	prefix := s.alias + "_"
	for _, c := range resp.Result.Collections {
		if c.Name != keep && strings.HasPrefix(c.Name, prefix) {
			req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
				fmt.Sprintf("%s/collections/%s", s.url, c.Name), nil)
			if err != nil {
				continue
			}
			s.setHeaders(req)
			if r, err := s.client.Do(req); err == nil {
				r.Body.Close()
			}
		}
	}
}

func (s *QdrantStore) fetchCount(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.url, s.alias)
	if err := s.postJSON(ctx, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *QdrantStore) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func (s *QdrantStore) do(ctx context.Context, method, url string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *QdrantStore) putJSON(ctx context.Context, url string, body, out any) error {
	return s.do(ctx, http.MethodPut, url, body, out)
}

func (s *QdrantStore) postJSON(ctx context.Context, url string, body, out any) error {
	return s.do(ctx, http.MethodPost, url, body, out)
}

func (s *QdrantStore) getJSON(ctx context.Context, url string, out any) error {
	return s.do(ctx, http.MethodGet, url, nil, out)
}
