package jellyfin

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/idhash"
)

// queryInt returns a query parameter as int, or def when absent/bad.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GET /Items/{itemid}
// GET /Users/{userid}/Items/{itemid}
func (s *Service) itemHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	_, ref := s.library.GetItem(mux.Vars(r)["itemid"])
	if !ref.Valid() {
		notFound(w)
		return
	}
	serveJSON(w, s.makeItem(r.Context(), user, ref))
}

// GET /Items
// GET /Users/{userid}/Items
//
// The workhorse listing endpoint: candidate selection via parentId/ids/
// searchTerm, then filtering, sorting and pagination.
func (s *Service) itemsHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()

	var refs []collection.ItemRef
	switch {
	case q.Get("ids") != "":
		for _, id := range splitList(q.Get("ids")) {
			if _, ref := s.library.GetItem(id); ref.Valid() {
				refs = append(refs, ref)
			}
		}
	case q.Get("searchTerm") != "":
		hits, err := s.library.Search(r.Context(), q.Get("searchTerm"), queryInt(r, "limit", 50))
		if err == nil {
			for _, h := range hits {
				if _, ref := s.library.GetItem(h.ID); ref.Valid() {
					refs = append(refs, ref)
				}
			}
		}
	default:
		refs = s.candidates(q.Get("parentId"), q.Get("recursive") == "true")
	}

	items := make([]JFItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, s.makeItem(r.Context(), user, ref))
	}

	items = applyFilters(items, q)
	items = applySort(items, q)
	page, total, start := applyPagination(items, q)
	serveJSON(w, JFQueryResult{Items: page, TotalRecordCount: total, StartIndex: start})
}

// candidates resolves a parentId to its children: a collection yields
// its movies or shows, a show its seasons, a season its episodes. No
// parentId yields every collection's top-level items. recursive expands
// show subtrees.
func (s *Service) candidates(parentID string, recursive bool) []collection.ItemRef {
	var refs []collection.ItemRef

	expandShow := func(show *collection.Show) {
		for _, number := range sortedSeasonNumbers(show.Seasons) {
			season := show.Seasons[number]
			refs = append(refs, collection.SeasonRef(season))
			for _, e := range sortedEpisodes(season) {
				refs = append(refs, collection.EpisodeRef(e))
			}
		}
	}

	addCollection := func(c *collection.Collection) {
		for _, ref := range c.Items() {
			refs = append(refs, ref)
			if recursive && ref.Kind == collection.KindSeries {
				expandShow(ref.Show)
			}
		}
	}

	if parentID == "" {
		for _, c := range s.library.Collections() {
			addCollection(c)
		}
		return refs
	}

	if c := s.library.GetCollection(parentID); c != nil {
		addCollection(c)
		return refs
	}

	_, parent := s.library.GetItem(parentID)
	switch parent.Kind {
	case collection.KindSeries:
		if recursive {
			expandShow(parent.Show)
		} else {
			for _, number := range sortedSeasonNumbers(parent.Show.Seasons) {
				refs = append(refs, collection.SeasonRef(parent.Show.Seasons[number]))
			}
		}
	case collection.KindSeason:
		for _, e := range sortedEpisodes(parent.Season) {
			refs = append(refs, collection.EpisodeRef(e))
		}
	}
	return refs
}

func sortedSeasonNumbers(seasons map[int]*collection.Season) []int {
	numbers := make([]int, 0, len(seasons))
	for n := range seasons {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

func sortedEpisodes(season *collection.Season) []*collection.Episode {
	numbers := make([]int, 0, len(season.Episodes))
	for n := range season.Episodes {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	episodes := make([]*collection.Episode, 0, len(numbers))
	for _, n := range numbers {
		episodes = append(episodes, season.Episodes[n])
	}
	return episodes
}

// GET /Items/Latest
// GET /Users/{userid}/Items/Latest
func (s *Service) itemsLatestHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	q := r.URL.Query()
	refs := s.candidates(q.Get("parentId"), false)

	items := make([]JFItem, 0, len(refs))
	for _, ref := range refs {
		items = append(items, s.makeItem(r.Context(), user, ref))
	}
	items = applyFilters(items, q)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].DateCreated.After(items[j].DateCreated)
	})

	limit := queryInt(r, "limit", 16)
	if len(items) > limit {
		items = items[:limit]
	}
	serveJSON(w, items)
}

// GET /Users/{userid}/Items/Resume
// GET /UserItems/Resume
func (s *Service) itemsResumeHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	limit := queryInt(r, "limit", 12)

	states, err := s.db.GetResumeItems(r.Context(), user.ID, limit)
	if err != nil {
		// no resume items is an empty result, not an error
		serveJSON(w, JFQueryResult{Items: []JFItem{}})
		return
	}

	items := make([]JFItem, 0, len(states))
	for _, st := range states {
		// orphaned play state rows reference items no longer scanned
		if _, ref := s.library.GetItem(st.ItemID); ref.Valid() {
			items = append(items, s.makeItem(r.Context(), user, ref))
		}
	}
	serveJSON(w, JFQueryResult{Items: items, TotalRecordCount: len(items)})
}

// GET /Items/{itemid}/Similar
func (s *Service) itemSimilarHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	itemID := mux.Vars(r)["itemid"]
	hits, err := s.library.Similar(r.Context(), itemID, queryInt(r, "limit", 12))
	if err != nil {
		serveJSON(w, JFQueryResult{Items: []JFItem{}})
		return
	}

	items := make([]JFItem, 0, len(hits))
	for _, h := range hits {
		if _, ref := s.library.GetItem(h.ID); ref.Valid() {
			items = append(items, s.makeItem(r.Context(), user, ref))
		}
	}
	serveJSON(w, JFQueryResult{Items: items, TotalRecordCount: len(items)})
}

// GET /Search/Hints
func (s *Service) searchHintsHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	term := r.URL.Query().Get("searchTerm")
	if term == "" {
		badRequest(w, "searchTerm required")
		return
	}
	hits, err := s.library.Search(r.Context(), term, queryInt(r, "limit", 15))
	if err != nil {
		serveJSON(w, JFSearchHintResult{SearchHints: []JFSearchHint{}})
		return
	}

	out := make([]JFSearchHint, 0, len(hits))
	for _, h := range hits {
		out = append(out, JFSearchHint{
			ID:        h.ID,
			ItemID:    h.ID,
			Name:      h.Name,
			Type:      h.Type,
			MediaType: "Video",
		})
	}
	serveJSON(w, JFSearchHintResult{SearchHints: out, TotalRecordCount: len(out)})
}

// GET|POST /Items/{itemid}/PlaybackInfo
func (s *Service) playbackInfoHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	_, ref := s.library.GetItem(mux.Vars(r)["itemid"])
	if !ref.Valid() {
		notFound(w)
		return
	}
	sources := s.makeMediaSources(ref)
	if sources == nil {
		sources = []JFMediaSource{}
	}
	serveJSON(w, JFPlaybackInfoResponse{
		MediaSources:  sources,
		PlaySessionID: idhash.NewRandomID(),
	})
}
