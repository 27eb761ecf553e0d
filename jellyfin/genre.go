package jellyfin

import (
	"net/http"
	"sort"

	"github.com/finchmedia/finch-server/idhash"
)

// GET /Genres
//
// All genres across the library, most frequent first, name as the tie
// break.
func (s *Service) genresHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}

	counts := make(map[string]int)
	for _, c := range s.library.Collections() {
		for genre, n := range c.GenreCounts() {
			counts[genre] += n
		}
	}

	type genreCount struct {
		name  string
		count int
	}
	genres := make([]genreCount, 0, len(counts))
	for name, count := range counts {
		genres = append(genres, genreCount{name: name, count: count})
	}
	sort.Slice(genres, func(i, j int) bool {
		if genres[i].count != genres[j].count {
			return genres[i].count > genres[j].count
		}
		return genres[i].name < genres[j].name
	})

	items := make([]JFItem, 0, len(genres))
	for _, g := range genres {
		items = append(items, JFItem{
			ID:       idhash.IdHash(g.name),
			ServerID: s.serverID,
			Name:     g.name,
			Type:     "Genre",
			IsFolder: true,
			ChildCount: g.count,
		})
	}
	page, total, start := applyPagination(items, r.URL.Query())
	serveJSON(w, JFQueryResult{Items: page, TotalRecordCount: total, StartIndex: start})
}
