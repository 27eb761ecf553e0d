package collection

import "time"

// ItemKind tags the variants of ItemRef.
type ItemKind string

const (
	KindMovie   ItemKind = "Movie"
	KindSeries  ItemKind = "Series"
	KindSeason  ItemKind = "Season"
	KindEpisode ItemKind = "Episode"
)

// ItemRef is a tagged reference to any item in the library graph. Exactly
// one of the pointers matching Kind is set. The accessors cover the
// common projection used by sorting, filtering and DTO conversion, so
// callers rarely need to switch on Kind themselves.
type ItemRef struct {
	Kind    ItemKind
	Movie   *Movie
	Show    *Show
	Season  *Season
	Episode *Episode
}

func MovieRef(m *Movie) ItemRef     { return ItemRef{Kind: KindMovie, Movie: m} }
func ShowRef(s *Show) ItemRef       { return ItemRef{Kind: KindSeries, Show: s} }
func SeasonRef(s *Season) ItemRef   { return ItemRef{Kind: KindSeason, Season: s} }
func EpisodeRef(e *Episode) ItemRef { return ItemRef{Kind: KindEpisode, Episode: e} }

// Valid reports whether the reference points at an item.
func (r ItemRef) Valid() bool { return r.Kind != "" }

func (r ItemRef) ID() string {
	switch r.Kind {
	case KindMovie:
		return r.Movie.ID
	case KindSeries:
		return r.Show.ID
	case KindSeason:
		return r.Season.ID
	case KindEpisode:
		return r.Episode.ID
	}
	return ""
}

func (r ItemRef) CollectionID() string {
	switch r.Kind {
	case KindMovie:
		return r.Movie.CollectionID
	case KindSeries:
		return r.Show.CollectionID
	case KindSeason:
		return r.Season.CollectionID
	case KindEpisode:
		return r.Episode.CollectionID
	}
	return ""
}

func (r ItemRef) Name() string {
	switch r.Kind {
	case KindMovie:
		return r.Movie.Name
	case KindSeries:
		return r.Show.Name
	case KindSeason:
		return r.Season.Name
	case KindEpisode:
		return r.Episode.Name
	}
	return ""
}

// SortName falls back to the plain name for kinds that have no derived
// sort name of their own.
func (r ItemRef) SortName() string {
	switch r.Kind {
	case KindMovie:
		if r.Movie.SortName != "" {
			return r.Movie.SortName
		}
	case KindSeries:
		if r.Show.SortName != "" {
			return r.Show.SortName
		}
	}
	return r.Name()
}

func (r ItemRef) Genres() []string {
	switch r.Kind {
	case KindMovie:
		return r.Movie.Genres
	case KindSeries:
		return r.Show.Genres
	}
	return nil
}

func (r ItemRef) CommunityRating() float32 {
	switch r.Kind {
	case KindMovie:
		return r.Movie.CommunityRating
	case KindSeries:
		return r.Show.CommunityRating
	case KindEpisode:
		return r.Episode.CommunityRating
	}
	return 0
}

func (r ItemRef) ProductionYear() int {
	switch r.Kind {
	case KindMovie:
		return r.Movie.ProductionYear
	case KindSeries:
		return r.Show.ProductionYear
	case KindEpisode:
		if !r.Episode.PremiereDate.IsZero() {
			return r.Episode.PremiereDate.Year()
		}
	}
	return 0
}

func (r ItemRef) PremiereDate() time.Time {
	switch r.Kind {
	case KindMovie:
		return r.Movie.PremiereDate
	case KindSeries:
		return r.Show.PremiereDate
	case KindEpisode:
		return r.Episode.PremiereDate
	}
	return time.Time{}
}

func (r ItemRef) RuntimeTicks() int64 {
	switch r.Kind {
	case KindMovie:
		return r.Movie.RuntimeTicks
	case KindSeries:
		return r.Show.RuntimeTicks
	case KindEpisode:
		return r.Episode.RuntimeTicks
	}
	return 0
}

// IndexNumber is the episode number for episodes and the season number
// for seasons; zero for anything else.
func (r ItemRef) IndexNumber() int {
	switch r.Kind {
	case KindSeason:
		return r.Season.SeasonNumber
	case KindEpisode:
		return r.Episode.EpisodeNumber
	}
	return 0
}

// ParentIndexNumber is the season number for episodes; zero otherwise.
func (r ItemRef) ParentIndexNumber() int {
	if r.Kind == KindEpisode {
		return r.Episode.SeasonNumber
	}
	return 0
}

func (r ItemRef) Overview() string {
	switch r.Kind {
	case KindMovie:
		return r.Movie.Overview
	case KindSeries:
		return r.Show.Overview
	case KindEpisode:
		return r.Episode.Overview
	}
	return ""
}

func (r ItemRef) Images() ImageSet {
	switch r.Kind {
	case KindMovie:
		return r.Movie.Images
	case KindSeries:
		return r.Show.Images
	case KindSeason:
		return r.Season.Images
	case KindEpisode:
		images := r.Episode.Images
		if images.Primary == "" {
			images.Primary = images.Thumb
		}
		return images
	}
	return ImageSet{}
}

func (r ItemRef) DateCreated() time.Time {
	switch r.Kind {
	case KindMovie:
		return r.Movie.DateCreated
	case KindSeries:
		return r.Show.DateCreated
	case KindEpisode:
		return r.Episode.DateCreated
	}
	return time.Time{}
}

func (r ItemRef) DateModified() time.Time {
	switch r.Kind {
	case KindMovie:
		return r.Movie.DateModified
	case KindSeries:
		return r.Show.DateModified
	case KindEpisode:
		return r.Episode.DateModified
	}
	return time.Time{}
}

// Sources returns the media sources; exactly one for episodes, possibly
// several for movies, none for shows and seasons.
func (r ItemRef) Sources() []MediaSource {
	switch r.Kind {
	case KindMovie:
		return r.Movie.Sources
	case KindEpisode:
		return []MediaSource{r.Episode.Source}
	}
	return nil
}
