package search

import (
	"context"
	"errors"
	"strings"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// ErrNotReady is returned before the first Rebuild has completed.
var ErrNotReady = errors.New("search index not built yet")

// ErrUnknownDocument is returned by Similar for an id that is not in the
// index.
var ErrUnknownDocument = errors.New("document not in index")

// Similar returns up to limit items sharing genres with the given one.
// Genre terms match fuzzily (edit distance 1); results are restricted to
// the same item type and never include the source itself.
func (s *Index) Similar(ctx context.Context, id string, limit int) ([]Hit, error) {
	src, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	q := bleve.NewBooleanQuery()
	for _, g := range src.Genres {
		// term queries bypass the analyzer, so match the lowercased
		// tokens the standard analyzer produced
		fq := bleve.NewFuzzyQuery(strings.ToLower(g))
		fq.SetField(fieldGenres)
		fq.SetFuzziness(1)
		q.AddShould(fq)
	}
	if len(src.Genres) > 0 {
		// next to a MUST clause the SHOULD clauses are optional; require
		// at least one shared genre
		q.SetMinShould(1)
	}

	tq := bleve.NewTermQuery(src.Type)
	tq.SetField(fieldItemType)
	q.AddMust(tq)

	q.AddMustNot(query.NewDocIDQuery([]string{id}))

	return s.run(ctx, bleve.NewSearchRequestOptions(q, limit, 0, false))
}

// lookup fetches the stored projection of one document.
func (s *Index) lookup(ctx context.Context, id string) (*Document, error) {
	req := bleve.NewSearchRequestOptions(query.NewDocIDQuery([]string{id}), 1, 0, false)

	s.mu.RLock()
	idx := s.idx
	if idx == nil {
		s.mu.RUnlock()
		return nil, ErrNotReady
	}
	req.Fields = []string{fieldCollectionID, fieldItemType, fieldName, fieldGenres}
	res, err := idx.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if len(res.Hits) == 0 {
		return nil, ErrUnknownDocument
	}

	h := res.Hits[0]
	doc := &Document{
		ID:           h.ID,
		CollectionID: str(h.Fields[fieldCollectionID]),
		Name:         str(h.Fields[fieldName]),
		Type:         str(h.Fields[fieldItemType]),
	}
	switch g := h.Fields[fieldGenres].(type) {
	case string:
		if g != "" {
			doc.Genres = []string{g}
		}
	case []any:
		for _, v := range g {
			if s, ok := v.(string); ok {
				doc.Genres = append(doc.Genres, s)
			}
		}
	}
	return doc, nil
}
