// Package webapi is the native HTTP surface consumed by the bundled web
// UI: a small JSON API over the library plus the /data file tree.
package webapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/collection/metadata"
	"github.com/finchmedia/finch-server/hlsproxy"
	"github.com/finchmedia/finch-server/imageresize"
)

type Options struct {
	Library *collection.Repo
	Resizer *imageresize.Resizer
}

type Service struct {
	library *collection.Repo
	resizer *imageresize.Resizer
	proxy   *hlsproxy.Proxy
}

func New(o *Options) *Service {
	return &Service{
		library: o.Library,
		resizer: o.Resizer,
		proxy:   hlsproxy.New(),
	}
}

// RegisterHandlers attaches the native routes.
func (s *Service) RegisterHandlers(r *mux.Router) {
	gz := handlers.CompressHandler

	r.Handle("/api/collections", gz(http.HandlerFunc(s.collectionsHandler)))
	r.Handle("/api/collection/{coll}", gz(http.HandlerFunc(s.collectionHandler)))
	r.Handle("/api/collection/{coll}/items", gz(http.HandlerFunc(s.collectionItemsHandler)))
	r.Handle("/api/collection/{coll}/genres", gz(http.HandlerFunc(s.collectionGenresHandler)))
	r.Handle("/api/collection/{coll}/item/{item}", gz(http.HandlerFunc(s.collectionItemHandler)))

	r.PathPrefix("/data/{coll}/").HandlerFunc(s.dataHandler)
}

func serveJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(obj)
}

func (s *Service) lookup(r *http.Request) *collection.Collection {
	return s.library.GetCollection(mux.Vars(r)["coll"])
}

// GET /api/collections
func (s *Service) collectionsHandler(w http.ResponseWriter, r *http.Request) {
	collections := s.library.Collections()
	out := make([]CollectionInfo, 0, len(collections))
	for _, c := range collections {
		out = append(out, makeCollectionInfo(c))
	}
	serveJSON(w, out)
}

// GET /api/collection/{coll}
func (s *Service) collectionHandler(w http.ResponseWriter, r *http.Request) {
	c := s.lookup(r)
	if c == nil {
		http.Error(w, "no such collection", http.StatusNotFound)
		return
	}
	serveJSON(w, makeCollectionInfo(c))
}

// GET /api/collection/{coll}/items
func (s *Service) collectionItemsHandler(w http.ResponseWriter, r *http.Request) {
	c := s.lookup(r)
	if c == nil {
		http.Error(w, "no such collection", http.StatusNotFound)
		return
	}
	items := c.Items()
	out := make([]ItemSummary, 0, len(items))
	for _, ref := range items {
		out = append(out, makeItemSummary(ref))
	}
	serveJSON(w, out)
}

// GET /api/collection/{coll}/genres
//
// Genres with their item counts, most frequent first, tied genres in
// name order.
func (s *Service) collectionGenresHandler(w http.ResponseWriter, r *http.Request) {
	c := s.lookup(r)
	if c == nil {
		http.Error(w, "no such collection", http.StatusNotFound)
		return
	}
	counts := c.GenreCounts()
	out := make([]GenreCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, GenreCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	serveJSON(w, out)
}

// GET /api/collection/{coll}/item/{item}
func (s *Service) collectionItemHandler(w http.ResponseWriter, r *http.Request) {
	c := s.lookup(r)
	if c == nil {
		http.Error(w, "no such collection", http.StatusNotFound)
		return
	}
	ref := c.FindItem(mux.Vars(r)["item"])
	switch ref.Kind {
	case collection.KindMovie:
		serveJSON(w, makeMovieDetail(ref.Movie))
	case collection.KindSeries:
		serveJSON(w, makeShowDetail(ref.Show))
	default:
		http.Error(w, "no such item", http.StatusNotFound)
	}
}

func makeCollectionInfo(c *collection.Collection) CollectionInfo {
	return CollectionInfo{
		ID:      c.ID,
		Name:    c.Name,
		Kind:    string(c.Kind),
		BaseURL: c.BaseURL,
	}
}

func makeItemSummary(ref collection.ItemRef) ItemSummary {
	images := ref.Images()
	return ItemSummary{
		ID:       ref.ID(),
		Name:     ref.Name(),
		SortName: ref.SortName(),
		Kind:     string(ref.Kind),
		Year:     ref.ProductionYear(),
		Rating:   ref.CommunityRating(),
		Genres:   ref.Genres(),
		Poster:   images.Primary,
		Backdrop: images.Backdrop,
	}
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func makeSources(sources []collection.MediaSource) []SourceInfo {
	out := make([]SourceInfo, 0, len(sources))
	for _, src := range sources {
		out = append(out, makeSource(src))
	}
	return out
}

func makeSource(src collection.MediaSource) SourceInfo {
	s := SourceInfo{
		Path:      src.Path,
		Container: src.Container,
		Size:      src.Size,
	}
	for _, sub := range src.Subtitles {
		s.Subtitles = append(s.Subtitles, SubtitleInfo{
			Path:     sub.Path,
			Language: sub.Language,
			Codec:    sub.Codec,
		})
	}
	return s
}

func makePeople(people []metadata.Person) []PersonInfo {
	out := make([]PersonInfo, 0, len(people))
	for _, p := range people {
		out = append(out, PersonInfo{Name: p.Name, Role: p.Role, Type: string(p.Type)})
	}
	return out
}

func makeMovieDetail(m *collection.Movie) MovieDetail {
	return MovieDetail{
		ItemSummary:    makeItemSummary(collection.MovieRef(m)),
		OriginalTitle:  m.OriginalTitle,
		Overview:       m.Overview,
		Tagline:        m.Tagline,
		OfficialRating: m.OfficialRating,
		PremiereDate:   dateString(m.PremiereDate),
		RuntimeTicks:   m.RuntimeTicks,
		Studios:        m.Studios,
		People:         makePeople(m.People),
		Logo:           m.Images.Logo,
		Sources:        makeSources(m.Sources),
	}
}

func makeShowDetail(sh *collection.Show) ShowDetail {
	d := ShowDetail{
		ItemSummary:    makeItemSummary(collection.ShowRef(sh)),
		OriginalTitle:  sh.OriginalTitle,
		Overview:       sh.Overview,
		Tagline:        sh.Tagline,
		OfficialRating: sh.OfficialRating,
		PremiereDate:   dateString(sh.PremiereDate),
		Studios:        sh.Studios,
		People:         makePeople(sh.People),
		Logo:           sh.Images.Logo,
		Seasons:        []SeasonInfo{},
	}

	numbers := make([]int, 0, len(sh.Seasons))
	for n := range sh.Seasons {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		season := sh.Seasons[n]
		si := SeasonInfo{
			ID:           season.ID,
			Name:         season.Name,
			SeasonNumber: season.SeasonNumber,
			Poster:       season.Images.Primary,
			Episodes:     []EpisodeInfo{},
		}
		epNumbers := make([]int, 0, len(season.Episodes))
		for en := range season.Episodes {
			epNumbers = append(epNumbers, en)
		}
		sort.Ints(epNumbers)
		for _, en := range epNumbers {
			e := season.Episodes[en]
			si.Episodes = append(si.Episodes, EpisodeInfo{
				ID:            e.ID,
				Name:          e.Name,
				SeasonNumber:  e.SeasonNumber,
				EpisodeNumber: e.EpisodeNumber,
				EndEpisode:    e.EndEpisode,
				Overview:      e.Overview,
				Rating:        e.CommunityRating,
				PremiereDate:  dateString(e.PremiereDate),
				Thumb:         e.PrimaryImage(),
				Source:        makeSource(e.Source),
			})
		}
		d.Seasons = append(d.Seasons, si)
	}
	return d
}
