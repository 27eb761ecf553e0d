package jellyfin

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
)

// GET /Shows/{showid}/Seasons
func (s *Service) seasonsHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	_, ref := s.library.GetItem(mux.Vars(r)["showid"])
	if ref.Kind != collection.KindSeries {
		notFound(w)
		return
	}

	items := make([]JFItem, 0, len(ref.Show.Seasons))
	for _, number := range sortedSeasonNumbers(ref.Show.Seasons) {
		items = append(items, s.makeItem(r.Context(), user, collection.SeasonRef(ref.Show.Seasons[number])))
	}
	serveJSON(w, JFQueryResult{Items: items, TotalRecordCount: len(items)})
}

// GET /Shows/{showid}/Episodes
//
// Episodes across all seasons ordered by (season, episode); seasonId
// narrows to one season.
func (s *Service) episodesHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	_, ref := s.library.GetItem(mux.Vars(r)["showid"])
	if ref.Kind != collection.KindSeries {
		notFound(w)
		return
	}
	seasonID := r.URL.Query().Get("seasonId")

	var episodes []*collection.Episode
	for _, number := range sortedSeasonNumbers(ref.Show.Seasons) {
		season := ref.Show.Seasons[number]
		if seasonID != "" && season.ID != seasonID {
			continue
		}
		episodes = append(episodes, sortedEpisodes(season)...)
	}

	items := make([]JFItem, 0, len(episodes))
	for _, e := range episodes {
		items = append(items, s.makeItem(r.Context(), user, collection.EpisodeRef(e)))
	}
	page, total, start := applyPagination(items, r.URL.Query())
	serveJSON(w, JFQueryResult{Items: page, TotalRecordCount: total, StartIndex: start})
}

// GET /Shows/NextUp
//
// For each show with played episodes, the episode after the highest
// played one: the next episode in its season, or the first episode of
// the following season. With seriesId set and nothing played yet, the
// show's first episode.
func (s *Service) nextUpHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	seriesID := r.URL.Query().Get("seriesId")

	playedIDs, err := s.db.GetPlayedItems(r.Context(), user.ID)
	if err != nil {
		internalError(w)
		return
	}

	// highest played (season, episode) per show
	type watermark struct {
		show    *collection.Show
		season  int
		episode int
	}
	marks := make(map[string]watermark)
	for _, id := range playedIDs {
		_, ref := s.library.GetItem(id)
		if ref.Kind != collection.KindEpisode {
			continue
		}
		e := ref.Episode
		if seriesID != "" && e.ShowID != seriesID {
			continue
		}
		_, showRef := s.library.GetItem(e.ShowID)
		if showRef.Kind != collection.KindSeries {
			continue
		}
		m, ok := marks[e.ShowID]
		if !ok || e.SeasonNumber > m.season ||
			(e.SeasonNumber == m.season && e.EpisodeNumber > m.episode) {
			marks[e.ShowID] = watermark{show: showRef.Show, season: e.SeasonNumber, episode: e.EpisodeNumber}
		}
	}

	var next []*collection.Episode
	for _, m := range marks {
		if e := successor(m.show, m.season, m.episode); e != nil {
			next = append(next, e)
		}
	}

	// a named show with no played episodes starts at the beginning
	if seriesID != "" && len(marks) == 0 {
		if _, ref := s.library.GetItem(seriesID); ref.Kind == collection.KindSeries {
			if e := firstEpisode(ref.Show); e != nil {
				next = append(next, e)
			}
		}
	}

	sort.Slice(next, func(i, j int) bool { return next[i].ID < next[j].ID })

	items := make([]JFItem, 0, len(next))
	for _, e := range next {
		items = append(items, s.makeItem(r.Context(), user, collection.EpisodeRef(e)))
	}
	limit := queryInt(r, "limit", 24)
	if len(items) > limit {
		items = items[:limit]
	}
	serveJSON(w, JFQueryResult{Items: items, TotalRecordCount: len(items)})
}

// successor returns the episode following (season, episode) in a show,
// nil when the show has been watched to the end.
func successor(show *collection.Show, seasonNumber, episodeNumber int) *collection.Episode {
	season := show.Seasons[seasonNumber]
	if season != nil {
		episodes := sortedEpisodes(season)
		for i, e := range episodes {
			if e.EpisodeNumber == episodeNumber && i+1 < len(episodes) {
				return episodes[i+1]
			}
		}
	}

	// first episode of the next season that has one
	for _, n := range sortedSeasonNumbers(show.Seasons) {
		if n <= seasonNumber {
			continue
		}
		if episodes := sortedEpisodes(show.Seasons[n]); len(episodes) > 0 {
			return episodes[0]
		}
	}
	return nil
}

func firstEpisode(show *collection.Show) *collection.Episode {
	for _, n := range sortedSeasonNumbers(show.Seasons) {
		if episodes := sortedEpisodes(show.Seasons[n]); len(episodes) > 0 {
			return episodes[0]
		}
	}
	return nil
}
