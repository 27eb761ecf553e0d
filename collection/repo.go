// The library repository: all configured collections behind one
// reader/writer lock, rescanned periodically, with the search index
// rebuilt after every full scan.
package collection

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finchmedia/finch-server/collection/search"
	"github.com/finchmedia/finch-server/database/model"
)

// ItemStore persists the thin item projection read by a few endpoints.
// Implemented by the database layer; optional.
type ItemStore interface {
	SaveItems(ctx context.Context, items []model.Item) error
}

// Repo owns the collections. Request handlers read it concurrently; the
// scanner is the only writer, and it swaps fully built collection
// contents in under the write lock so readers never see a half-scanned
// collection.
type Repo struct {
	mu          sync.RWMutex
	collections []*Collection

	index *search.Index
	store ItemStore
}

type Options struct {
	// Store receives item projections after every scan; may be nil.
	Store ItemStore
}

func New(o *Options) *Repo {
	r := &Repo{index: search.New()}
	if o != nil {
		r.store = o.Store
	}
	return r
}

// AddCollection registers a configured collection. Contents appear once
// the first scan runs. Called during startup only.
func (r *Repo) AddCollection(id, name, kind, directory, baseURL, hlsServer string) error {
	var k CollectionKind
	switch strings.ToLower(kind) {
	case "movies":
		k = KindMovies
	case "shows", "show", "tv", "tvshows":
		k = KindShows
	default:
		return fmt.Errorf("collection %q: unknown type %q", name, kind)
	}
	if id == "" {
		id = uuid.NewString()
	}

	c := &Collection{
		ID:        id,
		Name:      name,
		Kind:      k,
		Directory: directory,
		BaseURL:   baseURL,
		HlsServer: hlsServer,
		Movies:    make(map[string]*Movie),
		Shows:     make(map[string]*Show),
	}

	r.mu.Lock()
	r.collections = append(r.collections, c)
	r.mu.Unlock()

	log.Printf("collection %q (%s) at %s", name, k, directory)
	return nil
}

// Collections returns the collections in configuration order.
func (r *Repo) Collections() []*Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Collection, len(r.collections))
	copy(out, r.collections)
	return out
}

// GetCollection returns the collection with the given id, or nil.
func (r *Repo) GetCollection(id string) *Collection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// GetItem finds an item anywhere in the library graph. Returns the
// owning collection id and the item; the zero ItemRef when not found.
func (r *Repo) GetItem(id string) (string, ItemRef) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collections {
		if ref := c.FindItem(id); ref.Valid() {
			return c.ID, ref
		}
	}
	return "", ItemRef{}
}

// ScanAll rescans every collection and rebuilds the search index. A
// collection whose scan fails keeps its previous contents; the other
// collections still get scanned.
func (r *Repo) ScanAll(ctx context.Context) {
	started := time.Now()

	r.mu.RLock()
	collections := make([]*Collection, len(r.collections))
	copy(collections, r.collections)
	r.mu.RUnlock()

	for _, c := range collections {
		if ctx.Err() != nil {
			return
		}
		switch c.Kind {
		case KindMovies:
			movies, err := scanMovies(c)
			if err != nil {
				log.Printf("scan %s: %v", c.Name, err)
				continue
			}
			r.mu.Lock()
			c.Movies = movies
			r.mu.Unlock()
		case KindShows:
			shows, err := scanShows(c)
			if err != nil {
				log.Printf("scan %s: %v", c.Name, err)
				continue
			}
			r.mu.Lock()
			c.Shows = shows
			r.mu.Unlock()
		}
	}

	r.rebuildIndex(ctx)
	r.saveProjections(ctx)
	log.Printf("scan of %d collections done in %s", len(collections), time.Since(started).Round(time.Millisecond))
}

// Run rescans the library every interval until the context is canceled.
// The initial scan is expected to have been done by the caller.
func (r *Repo) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.ScanAll(ctx)
		}
	}
}

// Search returns up to limit items matching the query.
func (r *Repo) Search(ctx context.Context, query string, limit int) ([]search.Hit, error) {
	return r.index.Search(ctx, query, limit)
}

// Similar returns up to limit items similar to the given one.
func (r *Repo) Similar(ctx context.Context, id string, limit int) ([]search.Hit, error) {
	return r.index.Similar(ctx, id, limit)
}

// rebuildIndex projects the whole graph into the search index.
func (r *Repo) rebuildIndex(ctx context.Context) {
	var docs []search.Document

	r.mu.RLock()
	for _, c := range r.collections {
		for _, m := range c.Movies {
			docs = append(docs, search.Document{
				ID:           m.ID,
				CollectionID: c.ID,
				Name:         m.Name,
				Overview:     m.Overview,
				Genres:       m.Genres,
				Type:         string(KindMovie),
			})
		}
		for _, s := range c.Shows {
			docs = append(docs, search.Document{
				ID:           s.ID,
				CollectionID: c.ID,
				Name:         s.Name,
				Overview:     s.Overview,
				Genres:       s.Genres,
				Type:         string(KindSeries),
			})
			for _, season := range s.Seasons {
				for _, e := range season.Episodes {
					docs = append(docs, search.Document{
						ID:           e.ID,
						CollectionID: c.ID,
						Name:         e.Name,
						Overview:     e.Overview,
						Genres:       s.Genres,
						Type:         string(KindEpisode),
					})
				}
			}
		}
	}
	r.mu.RUnlock()

	if err := r.index.Rebuild(ctx, docs); err != nil {
		log.Printf("search index rebuild: %v", err)
		return
	}
	log.Printf("search index rebuilt, %d documents", len(docs))
}

// saveProjections pushes the thin item rows into the database.
func (r *Repo) saveProjections(ctx context.Context) {
	if r.store == nil {
		return
	}
	var items []model.Item

	r.mu.RLock()
	for _, c := range r.collections {
		for _, item := range c.Items() {
			items = append(items, model.Item{
				ID:           item.ID(),
				Name:         item.Name(),
				Kind:         string(item.Kind),
				Genres:       strings.Join(item.Genres(), ","),
				Rating:       item.CommunityRating(),
				Year:         item.ProductionYear(),
				DateCreated:  item.DateCreated(),
				DateModified: item.DateModified(),
			})
		}
	}
	r.mu.RUnlock()

	if err := r.store.SaveItems(ctx, items); err != nil {
		log.Printf("saving item projections: %v", err)
	}
}
