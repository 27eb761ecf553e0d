package collection

import (
	"fmt"
	"time"

	"github.com/finchmedia/finch-server/collection/metadata"
)

// ImageSet holds the artwork found next to an item. All paths are
// relative to the collection root; empty means no such image exists.
type ImageSet struct {
	Primary  string
	Backdrop string
	Logo     string
	Thumb    string
	Banner   string
}

// SubtitleStream is one subtitle sidecar bound to a media source.
type SubtitleStream struct {
	// Path relative to the collection root.
	Path string
	// Language code parsed from the filename ("en", "eng"), if any.
	Language string
	// Codec is "subrip" or "webvtt".
	Codec string
	Title string
}

// MediaSource is one playable video file.
type MediaSource struct {
	// Path relative to the collection root.
	Path string
	// Container is the file extension without dot, e.g. "mkv".
	Container string
	// Size in bytes.
	Size      int64
	Bitrate   int
	Subtitles []SubtitleStream
}

// Movie is a single movie directory.
type Movie struct {
	ID            string
	CollectionID  string
	Name          string
	SortName      string
	OriginalTitle string
	// Path of the movie directory, relative to the collection root.
	Path            string
	PremiereDate    time.Time
	ProductionYear  int
	CommunityRating float32
	OfficialRating  string
	// RuntimeTicks in 100ns units; one minute is 600_000_000 ticks.
	RuntimeTicks int64
	Overview     string
	Tagline      string
	Genres       []string
	Studios      []string
	People       []metadata.Person
	Images       ImageSet
	Sources      []MediaSource
	DateCreated  time.Time
	DateModified time.Time
}

// Show is a TV show directory holding seasons.
type Show struct {
	ID              string
	CollectionID    string
	Name            string
	SortName        string
	OriginalTitle   string
	Path            string
	PremiereDate    time.Time
	ProductionYear  int
	CommunityRating float32
	OfficialRating  string
	RuntimeTicks    int64
	Overview        string
	Tagline         string
	Genres          []string
	Studios         []string
	People          []metadata.Person
	Images          ImageSet
	// Seasons keyed by season number; 0 holds specials.
	Seasons      map[int]*Season
	DateCreated  time.Time
	DateModified time.Time
}

// Season groups the episodes of one season.
type Season struct {
	// ID is "{show_id}:S{nn}".
	ID           string
	ShowID       string
	CollectionID string
	// Name is "Specials" for season 0, "Season {n}" otherwise.
	Name         string
	SeasonNumber int
	// Path of the season directory, relative to the collection root.
	Path   string
	Images ImageSet
	// Episodes keyed by episode number.
	Episodes map[int]*Episode
}

// Episode is one video file inside a season directory.
type Episode struct {
	// ID is "{season_id}:E{nn}".
	ID           string
	ShowID       string
	SeasonID     string
	CollectionID string
	Name         string
	SeasonNumber int
	EpisodeNumber int
	// EndEpisode is set when the file spans a range of episodes.
	EndEpisode      int
	Path            string
	PremiereDate    time.Time
	CommunityRating float32
	RuntimeTicks    int64
	Overview        string
	Images          ImageSet
	// Source is the episode's one and only media source.
	Source       MediaSource
	DateCreated  time.Time
	DateModified time.Time
}

// SeasonID returns the id a season of show gets, "{show_id}:S{nn}".
func SeasonID(showID string, season int) string {
	return fmt.Sprintf("%s:S%02d", showID, season)
}

// EpisodeID returns the id an episode gets, "{season_id}:E{nn}".
func EpisodeID(seasonID string, episode int) string {
	return fmt.Sprintf("%s:E%02d", seasonID, episode)
}

// seasonName returns the display name of a season.
func seasonName(number int) string {
	if number == 0 {
		return "Specials"
	}
	return fmt.Sprintf("Season %d", number)
}

// PrimaryImage returns the image to use as the episode thumbnail; an
// episode without an explicit primary falls back to its thumb.
func (e *Episode) PrimaryImage() string {
	if e.Images.Primary != "" {
		return e.Images.Primary
	}
	return e.Images.Thumb
}
