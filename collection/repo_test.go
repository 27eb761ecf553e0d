package collection

import (
	"context"
	"testing"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	movies := movieFixture(t)
	shows := showFixture(t)

	r := New(nil)
	if err := r.AddCollection(movies.ID, movies.Name, "movies", movies.Directory, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := r.AddCollection(shows.ID, shows.Name, "shows", shows.Directory, "", ""); err != nil {
		t.Fatal(err)
	}
	r.ScanAll(context.Background())
	return r
}

func TestAddCollectionGeneratesID(t *testing.T) {
	r := New(nil)
	if err := r.AddCollection("", "Films", "movies", t.TempDir(), "", ""); err != nil {
		t.Fatal(err)
	}
	if id := r.Collections()[0].ID; id == "" {
		t.Error("collection without configured id got no generated id")
	}
}

func TestAddCollectionUnknownKind(t *testing.T) {
	r := New(nil)
	if err := r.AddCollection("", "X", "music", t.TempDir(), "", ""); err == nil {
		t.Error("unknown collection type accepted")
	}
}

func TestGetItemAcrossGraph(t *testing.T) {
	r := testRepo(t)

	// collect every id in the graph; each must resolve to itself
	var ids []string
	for _, c := range r.Collections() {
		for id := range c.Movies {
			ids = append(ids, id)
		}
		for id, show := range c.Shows {
			ids = append(ids, id)
			for _, season := range show.Seasons {
				ids = append(ids, season.ID)
				for _, e := range season.Episodes {
					ids = append(ids, e.ID)
				}
			}
		}
	}
	if len(ids) == 0 {
		t.Fatal("fixture scanned to an empty library")
	}

	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate id in graph: %s", id)
		}
		seen[id] = true

		collID, ref := r.GetItem(id)
		if !ref.Valid() {
			t.Errorf("GetItem(%s) found nothing", id)
			continue
		}
		if ref.ID() != id {
			t.Errorf("GetItem(%s) returned item %s", id, ref.ID())
		}
		if r.GetCollection(collID) == nil {
			t.Errorf("GetItem(%s) returned unknown collection %s", id, collID)
		}
	}

	if _, ref := r.GetItem("no-such-item"); ref.Valid() {
		t.Error("GetItem of unknown id returned an item")
	}
}

func TestScanInvariants(t *testing.T) {
	r := testRepo(t)
	for _, c := range r.Collections() {
		for _, m := range c.Movies {
			if len(m.Sources) < 1 {
				t.Errorf("movie %s has no media source", m.Name)
			}
		}
		for _, s := range c.Shows {
			for _, season := range s.Seasons {
				for _, e := range season.Episodes {
					if e.Source.Path == "" {
						t.Errorf("episode %s has no media source", e.ID)
					}
				}
			}
		}
	}
}

func TestSearchAgreesWithLibrary(t *testing.T) {
	r := testRepo(t)
	hits, err := r.Search(context.Background(), "matrix", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for indexed movie")
	}
	for _, h := range hits {
		_, ref := r.GetItem(h.ID)
		if !ref.Valid() {
			t.Errorf("search hit %s does not resolve in the library", h.ID)
		}
	}
}
