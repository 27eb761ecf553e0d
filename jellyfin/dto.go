// Conversion from the library graph to the wire types.
package jellyfin

import (
	"context"
	"fmt"
	"path"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/collection/metadata"
	"github.com/finchmedia/finch-server/database/model"
	"github.com/finchmedia/finch-server/idhash"
)

// makeItem projects any library item to its DTO, with the user's play
// state attached when a user is in scope.
func (s *Service) makeItem(ctx context.Context, user *model.User, ref collection.ItemRef) JFItem {
	item := JFItem{
		ID:           ref.ID(),
		ServerID:     s.serverID,
		Name:         ref.Name(),
		SortName:     ref.SortName(),
		Type:         string(ref.Kind),
		LocationType: "FileSystem",
		ParentID:     ref.CollectionID(),
		PremiereDate: ref.PremiereDate(),
		ProductionYear: ref.ProductionYear(),
		CommunityRating: ref.CommunityRating(),
		RunTimeTicks: ref.RuntimeTicks(),
		Overview:     ref.Overview(),
		DateCreated:  ref.DateCreated(),
		Etag:         idhash.IdHash(ref.ID() + ref.DateModified().String()),
	}

	switch ref.Kind {
	case collection.KindMovie:
		m := ref.Movie
		item.MediaType = "Video"
		item.OriginalTitle = m.OriginalTitle
		item.OfficialRating = m.OfficialRating
		if m.Tagline != "" {
			item.Taglines = []string{m.Tagline}
		}
		item.Genres = m.Genres
		item.GenreItems = makeNames(m.Genres)
		item.Studios = makeNames(m.Studios)
		item.People = makePeople(m.People)
		item.MediaSources = s.makeMediaSources(ref)
		if len(m.Sources) > 0 {
			item.Container = m.Sources[0].Container
			item.Path = m.Sources[0].Path
		}

	case collection.KindSeries:
		sh := ref.Show
		item.IsFolder = true
		item.OriginalTitle = sh.OriginalTitle
		item.OfficialRating = sh.OfficialRating
		if sh.Tagline != "" {
			item.Taglines = []string{sh.Tagline}
		}
		item.Genres = sh.Genres
		item.GenreItems = makeNames(sh.Genres)
		item.Studios = makeNames(sh.Studios)
		item.People = makePeople(sh.People)
		item.ChildCount = len(sh.Seasons)
		for _, season := range sh.Seasons {
			item.RecursiveItemCount += len(season.Episodes)
		}

	case collection.KindSeason:
		season := ref.Season
		item.IsFolder = true
		item.ParentID = season.ShowID
		item.SeriesID = season.ShowID
		item.IndexNumber = season.SeasonNumber
		item.ChildCount = len(season.Episodes)
		if _, show := s.library.GetItem(season.ShowID); show.Valid() {
			item.SeriesName = show.Name()
		}

	case collection.KindEpisode:
		e := ref.Episode
		item.MediaType = "Video"
		item.ParentID = e.SeasonID
		item.SeriesID = e.ShowID
		item.SeasonID = e.SeasonID
		item.IndexNumber = e.EpisodeNumber
		item.IndexNumberEnd = e.EndEpisode
		item.ParentIndexNumber = e.SeasonNumber
		item.Container = e.Source.Container
		item.Path = e.Source.Path
		item.MediaSources = s.makeMediaSources(ref)
		if _, show := s.library.GetItem(e.ShowID); show.Valid() {
			item.SeriesName = show.Name()
		}
		if _, season := s.library.GetItem(e.SeasonID); season.Valid() {
			item.SeasonName = season.Name()
		}
	}

	item.ImageTags, item.BackdropImageTags = makeImageTags(ref.Images())

	if user != nil {
		item.UserData = s.makeUserData(ctx, user, ref.ID())
	}
	return item
}

// makeUserData returns the user's state for an item; untouched items get
// the zero state, not an absent field.
func (s *Service) makeUserData(ctx context.Context, user *model.User, itemID string) *JFUserData {
	ud := &JFUserData{Key: itemID}
	d, err := s.db.GetUserData(ctx, user.ID, itemID)
	if err != nil {
		return ud
	}
	ud.PlaybackPositionTicks = d.Position
	ud.PlayCount = d.PlayCount
	ud.IsFavorite = d.Favorite
	ud.Played = d.Played
	ud.PlayedPercentage = d.PlayedPercentage
	ud.LastPlayedDate = d.Updated
	return ud
}

func makeNames(names []string) []JFName {
	out := make([]JFName, 0, len(names))
	for _, n := range names {
		out = append(out, JFName{Name: n, ID: idhash.IdHash(n)})
	}
	return out
}

func makePeople(people []metadata.Person) []JFPerson {
	out := make([]JFPerson, 0, len(people))
	for _, p := range people {
		out = append(out, JFPerson{
			Name: p.Name,
			ID:   idhash.IdHash(p.Name),
			Role: p.Role,
			Type: string(p.Type),
		})
	}
	return out
}

// makeImageTags derives the tag maps clients use to decide whether any
// artwork exists. The tag doubles as a cache key.
func makeImageTags(images collection.ImageSet) (map[string]string, []string) {
	tags := make(map[string]string)
	if images.Primary != "" {
		tags["Primary"] = idhash.IdHash(images.Primary)
	}
	if images.Logo != "" {
		tags["Logo"] = idhash.IdHash(images.Logo)
	}
	if images.Thumb != "" {
		tags["Thumb"] = idhash.IdHash(images.Thumb)
	}
	if images.Banner != "" {
		tags["Banner"] = idhash.IdHash(images.Banner)
	}
	var backdrops []string
	if images.Backdrop != "" {
		backdrops = []string{idhash.IdHash(images.Backdrop)}
	}
	if len(tags) == 0 {
		tags = nil
	}
	return tags, backdrops
}

// makeMediaSources converts an item's sources, fabricating the video and
// audio stream entries: the real container is reported, stream metadata
// is best-effort defaults since nothing probes the media.
func (s *Service) makeMediaSources(ref collection.ItemRef) []JFMediaSource {
	c := s.library.GetCollection(ref.CollectionID())
	sources := ref.Sources()
	out := make([]JFMediaSource, 0, len(sources))
	for i, src := range sources {
		ms := JFMediaSource{
			ID:                   fmt.Sprintf("%s-%d", ref.ID(), i),
			Name:                 path.Base(src.Path),
			Path:                 src.Path,
			Protocol:             "File",
			Type:                 "Default",
			Container:            src.Container,
			Size:                 src.Size,
			Bitrate:              src.Bitrate,
			RunTimeTicks:         ref.RuntimeTicks(),
			SupportsDirectPlay:   true,
			SupportsDirectStream: true,
			MediaStreams: []JFMediaStream{
				{Index: 0, Type: "Video", Codec: "h264", IsDefault: true},
				{Index: 1, Type: "Audio", Codec: "aac", IsDefault: true},
			},
		}
		if c != nil {
			ms.Path = c.AbsPath(src.Path)
		}
		for j, sub := range src.Subtitles {
			ms.MediaStreams = append(ms.MediaStreams, JFMediaStream{
				Index:                2 + j,
				Type:                 "Subtitle",
				Codec:                sub.Codec,
				Language:             sub.Language,
				DisplayTitle:         sub.Language,
				IsExternal:           true,
				IsTextSubtitleStream: true,
				SupportsExternalStream: true,
				DeliveryMethod:       "External",
				DeliveryURL:          fmt.Sprintf("/Videos/%s/Subtitles/%d", ref.ID(), j),
			})
		}
		out = append(out, ms)
	}
	return out
}
