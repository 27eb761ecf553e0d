// Package search maintains the in-memory full-text index over the
// library. The index stores projection tuples, never item references,
// so the library and the index can be replaced independently.
package search

import (
	"context"
	"strings"
	"sync"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Bleve field names.
const (
	fieldID           = "id"
	fieldCollectionID = "collection_id"
	fieldName         = "name"
	fieldOverview     = "overview"
	fieldGenres       = "genres"
	fieldItemType     = "item_type"
)

// Document is what gets indexed per item: a copied projection, not a
// reference into the library graph.
type Document struct {
	ID           string   `json:"id"`
	CollectionID string   `json:"collection_id"`
	Name         string   `json:"name"`
	Overview     string   `json:"overview"`
	Genres       []string `json:"genres"`
	// Type is Movie, Series or Episode. Seasons are not indexed.
	Type string `json:"item_type"`
}

// Hit is one search result.
type Hit struct {
	ID           string
	CollectionID string
	Type         string
	Name         string
}

// Index answers full-text and similarity queries. Rebuild replaces the
// whole underlying bleve index atomically; searches in flight keep using
// the snapshot they started on.
type Index struct {
	mu  sync.RWMutex
	idx bleve.Index
}

func New() *Index {
	return &Index{}
}

func buildMapping() mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true

	text := bleve.NewTextFieldMapping()
	text.Store = true

	unstored := bleve.NewTextFieldMapping()
	unstored.Store = false

	doc.AddFieldMappingsAt(fieldID, keyword)
	doc.AddFieldMappingsAt(fieldCollectionID, keyword)
	doc.AddFieldMappingsAt(fieldName, text)
	doc.AddFieldMappingsAt(fieldOverview, unstored)
	doc.AddFieldMappingsAt(fieldGenres, text)
	doc.AddFieldMappingsAt(fieldItemType, keyword)

	m.DefaultMapping = doc
	return m
}

// Rebuild indexes docs into a fresh index and swaps it in. The old index
// is closed only once no search holds it.
func (s *Index) Rebuild(ctx context.Context, docs []Document) error {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, d); err != nil {
			idx.Close()
			return err
		}
		if batch.Size() >= 1000 {
			if err := idx.Batch(batch); err != nil {
				idx.Close()
				return err
			}
			batch = idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			idx.Close()
			return err
		}
	}

	s.mu.Lock()
	old := s.idx
	s.idx = idx
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Search matches the query against name, overview and genres and returns
// up to limit hits.
func (s *Index) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	q := bleve.NewBooleanQuery()
	for _, field := range []string{fieldName, fieldOverview, fieldGenres} {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		if field == fieldName {
			mq.SetBoost(3.0)
		}
		q.AddShould(mq)
	}
	return s.run(ctx, bleve.NewSearchRequestOptions(q, limit, 0, false))
}

// run executes a prepared request against the current snapshot.
func (s *Index) run(ctx context.Context, req *bleve.SearchRequest) ([]Hit, error) {
	s.mu.RLock()
	idx := s.idx
	if idx == nil {
		s.mu.RUnlock()
		return nil, ErrNotReady
	}
	req.Fields = []string{fieldCollectionID, fieldItemType, fieldName}
	res, err := idx.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			ID:           h.ID,
			CollectionID: str(h.Fields[fieldCollectionID]),
			Type:         str(h.Fields[fieldItemType]),
			Name:         str(h.Fields[fieldName]),
		})
	}
	return hits, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
