// Directory scanning: one level of subdirectories per collection, each
// subdirectory a potential movie or show. The scanner is the only place
// that reconciles filesystem conventions (naming schemes, sidecars,
// image files) into the typed library graph.
package collection

import (
	"log"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/finchmedia/finch-server/collection/metadata"
	"github.com/finchmedia/finch-server/idhash"
)

// ticksPerMinute converts sidecar runtimes to 100ns ticks.
const ticksPerMinute = 600_000_000

var (
	videoExts = map[string]bool{
		"mkv": true, "mp4": true, "avi": true, "m4v": true,
		"mov": true, "wmv": true, "flv": true, "webm": true,
	}
	imageExts = map[string]bool{
		"jpg": true, "jpeg": true, "png": true, "webp": true,
	}
	subtitleExts = map[string]bool{
		"srt": true, "vtt": true,
	}

	reSeasonDir   = regexp.MustCompile(`(?i)^season\s*(\d+)$`)
	reSeasonShort = regexp.MustCompile(`(?i)^s(\d+)$`)
	reSeasonImage = regexp.MustCompile(`(?i)^season(\d+)(?:-([a-z]+))?\.`)
)

// ext returns the lowercased filename extension without the dot.
func ext(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// stem returns the filename without its extension.
func stem(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name
	}
	return name[:i]
}

// dirListing is one directory's children, classified once by extension.
type dirListing struct {
	videos    []dirEntry
	images    []dirEntry
	subtitles []dirEntry
	nfo       string // full path of the first *.nfo, or empty
	subdirs   []dirEntry
}

func readListing(dirPath string) (*dirListing, error) {
	d, err := OpenDir(dirPath)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	entries, err := d.Readdir(0)
	if err != nil {
		return nil, err
	}

	l := &dirListing{}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			l.subdirs = append(l.subdirs, e)
			continue
		}
		switch x := ext(name); {
		case videoExts[x]:
			l.videos = append(l.videos, e)
		case imageExts[x]:
			l.images = append(l.images, e)
		case subtitleExts[x]:
			l.subtitles = append(l.subtitles, e)
		case x == "nfo":
			if l.nfo == "" {
				l.nfo = e.fullPath
			}
		}
	}
	sort.Slice(l.videos, func(i, j int) bool { return l.videos[i].Name() < l.videos[j].Name() })
	return l, nil
}

// classifyImages binds loose image files to artwork slots. The filename
// substring decides the slot; the first file to claim a slot keeps it,
// and any unclaimed image becomes the primary if none was found.
func classifyImages(images []dirEntry, rel func(dirEntry) string) ImageSet {
	var set ImageSet
	var leftover []string
	for _, img := range images {
		name := strings.ToLower(img.Name())
		p := rel(img)
		switch {
		case strings.Contains(name, "poster"):
			if set.Primary == "" {
				set.Primary = p
			}
		case strings.Contains(name, "fanart"), strings.Contains(name, "backdrop"):
			if set.Backdrop == "" {
				set.Backdrop = p
			}
		case strings.Contains(name, "logo"):
			if set.Logo == "" {
				set.Logo = p
			}
		case strings.Contains(name, "thumb"):
			if set.Thumb == "" {
				set.Thumb = p
			}
		case strings.Contains(name, "banner"):
			if set.Banner == "" {
				set.Banner = p
			}
		default:
			leftover = append(leftover, p)
		}
	}
	if set.Primary == "" && len(leftover) > 0 {
		set.Primary = leftover[0]
	}
	return set
}

// bindSubtitles returns the subtitle streams belonging to a video,
// matched by shared filename stem. A trailing two or three letter
// segment before the extension is taken as the language code,
// "episode.en.srt" style.
func bindSubtitles(videoName string, subtitles []dirEntry, rel func(dirEntry) string) []SubtitleStream {
	videoStem := stem(videoName)
	var out []SubtitleStream
	for _, sub := range subtitles {
		if !strings.HasPrefix(stem(sub.Name()), videoStem) {
			continue
		}
		s := SubtitleStream{
			Path:  rel(sub),
			Codec: subtitleCodec(ext(sub.Name())),
		}
		if lang := subtitleLanguage(sub.Name()); lang != "" {
			s.Language = lang
		}
		out = append(out, s)
	}
	return out
}

func subtitleCodec(ext string) string {
	if ext == "vtt" {
		return "webvtt"
	}
	return "subrip"
}

func subtitleLanguage(name string) string {
	parts := strings.Split(stem(name), ".")
	if len(parts) < 2 {
		return ""
	}
	last := parts[len(parts)-1]
	if len(last) == 2 || len(last) == 3 {
		for _, r := range last {
			if r < 'a' || r > 'z' {
				return ""
			}
		}
		return last
	}
	return ""
}

// applyNFO copies parsed sidecar fields onto a movie. The directory name
// stays the display name; the sidecar title only survives as the
// original title when it differs.
func (m *Movie) applyNFO(n *metadata.NFO) {
	if n == nil {
		return
	}
	if n.Title != "" && n.Title != m.Name {
		m.OriginalTitle = n.Title
	}
	if n.OriginalTitle != "" {
		m.OriginalTitle = n.OriginalTitle
	}
	if n.SortTitle != "" {
		m.SortName = metadata.SortName(n.SortTitle)
	}
	m.Overview = n.Plot
	m.Tagline = n.Tagline
	m.CommunityRating = n.Rating
	m.OfficialRating = n.MPAA
	m.ProductionYear = n.Year
	m.PremiereDate = n.Premiered
	m.Genres = normalizeGenres(n.Genres)
	m.Studios = n.Studios
	m.People = n.People
	if n.Runtime > 0 {
		m.RuntimeTicks = int64(n.Runtime) * ticksPerMinute
	}
}

func normalizeGenres(genres []string) []string {
	var out []string
	for _, g := range genres {
		if n := metadata.NormalizeGenre(g); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// scanMovies walks one level of the collection root and returns the
// movies found. Only a missing or unreadable root is an error; broken
// individual directories are logged and skipped.
func scanMovies(c *Collection) (map[string]*Movie, error) {
	root, err := readListing(c.Directory)
	if err != nil {
		return nil, err
	}
	movies := make(map[string]*Movie)
	for _, sub := range root.subdirs {
		m := scanMovieDir(c, sub.Name())
		if m != nil {
			movies[m.ID] = m
		}
	}
	return movies, nil
}

func scanMovieDir(c *Collection, dir string) *Movie {
	l, err := readListing(path.Join(c.Directory, dir))
	if err != nil {
		log.Printf("scan: %s: %v", dir, err)
		return nil
	}
	if len(l.videos) == 0 {
		return nil
	}

	rel := func(e dirEntry) string { return path.Join(dir, e.Name()) }

	name := path.Base(dir)
	m := &Movie{
		ID:           idhash.IdHash(name),
		CollectionID: c.ID,
		Name:         name,
		SortName:     metadata.SortName(name),
		Path:         dir,
		Images:       classifyImages(l.images, rel),
	}

	for _, v := range l.videos {
		m.Sources = append(m.Sources, MediaSource{
			Path:      rel(v),
			Container: ext(v.Name()),
			Size:      v.Size(),
			Subtitles: bindSubtitles(v.Name(), l.subtitles, rel),
		})
		created := v.Createtime()
		if m.DateCreated.IsZero() || created.Before(m.DateCreated) {
			m.DateCreated = created
		}
		if created.After(m.DateModified) {
			m.DateModified = created
		}
	}

	if l.nfo != "" {
		m.applyNFO(metadata.Load(l.nfo))
	}
	return m
}

// seasonNumberFromDir maps a show subdirectory name to a season number;
// ok is false for directories that are not seasons.
func seasonNumberFromDir(name string) (int, bool) {
	lower := strings.ToLower(name)
	if lower == "specials" {
		return 0, true
	}
	if m := reSeasonDir.FindStringSubmatch(name); m != nil {
		return atoi(m[1]), true
	}
	if m := reSeasonShort.FindStringSubmatch(name); m != nil {
		return atoi(m[1]), true
	}
	return 0, false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// scanShows walks one level of the collection root and returns the shows
// found.
func scanShows(c *Collection) (map[string]*Show, error) {
	root, err := readListing(c.Directory)
	if err != nil {
		return nil, err
	}
	shows := make(map[string]*Show)
	for _, sub := range root.subdirs {
		s := scanShowDir(c, sub.Name())
		if s != nil {
			shows[s.ID] = s
		}
	}
	return shows, nil
}

func scanShowDir(c *Collection, dir string) *Show {
	l, err := readListing(path.Join(c.Directory, dir))
	if err != nil {
		log.Printf("scan: %s: %v", dir, err)
		return nil
	}

	rel := func(e dirEntry) string { return path.Join(dir, e.Name()) }

	name := path.Base(dir)
	show := &Show{
		ID:           idhash.IdHash(name),
		CollectionID: c.ID,
		Name:         name,
		SortName:     metadata.SortName(name),
		Path:         dir,
		Seasons:      make(map[int]*Season),
	}

	// season artwork lives in the show root as "season01-poster.jpg"
	var showImages []dirEntry
	seasonImages := make(map[int][]dirEntry)
	for _, img := range l.images {
		if m := reSeasonImage.FindStringSubmatch(img.Name()); m != nil {
			n := atoi(m[1])
			seasonImages[n] = append(seasonImages[n], img)
			continue
		}
		showImages = append(showImages, img)
	}
	show.Images = classifyImages(showImages, rel)

	for _, sub := range l.subdirs {
		number, ok := seasonNumberFromDir(sub.Name())
		if !ok {
			continue
		}
		season := scanSeasonDir(c, show, dir, sub.Name(), number)
		if season == nil {
			continue
		}
		season.Images = classifySeasonImages(seasonImages[number], rel)
		if len(season.Episodes) > 0 {
			show.Seasons[number] = season
		}
	}
	if len(show.Seasons) == 0 {
		return nil
	}

	for _, season := range show.Seasons {
		for _, e := range season.Episodes {
			if show.DateCreated.IsZero() || e.DateCreated.Before(show.DateCreated) {
				show.DateCreated = e.DateCreated
			}
			if e.DateModified.After(show.DateModified) {
				show.DateModified = e.DateModified
			}
		}
	}

	if l.nfo != "" {
		show.applyNFO(metadata.Load(l.nfo))
	}
	return show
}

// applyNFO for shows mirrors the movie variant, with the year derived
// from the premiere date when the sidecar does not state one.
func (s *Show) applyNFO(n *metadata.NFO) {
	if n == nil {
		return
	}
	if n.Title != "" && n.Title != s.Name {
		s.OriginalTitle = n.Title
	}
	if n.OriginalTitle != "" {
		s.OriginalTitle = n.OriginalTitle
	}
	if n.SortTitle != "" {
		s.SortName = metadata.SortName(n.SortTitle)
	}
	s.Overview = n.Plot
	s.Tagline = n.Tagline
	s.CommunityRating = n.Rating
	s.OfficialRating = n.MPAA
	s.ProductionYear = n.Year
	s.PremiereDate = n.Premiered
	s.Genres = normalizeGenres(n.Genres)
	s.Studios = n.Studios
	s.People = n.People
	if n.Runtime > 0 {
		s.RuntimeTicks = int64(n.Runtime) * ticksPerMinute
	}
	if s.ProductionYear == 0 && !s.PremiereDate.IsZero() {
		s.ProductionYear = s.PremiereDate.Year()
	}
}

// classifySeasonImages maps "season01-poster.jpg" style files onto the
// season's artwork slots; a file without a type suffix is the poster.
func classifySeasonImages(images []dirEntry, rel func(dirEntry) string) ImageSet {
	var set ImageSet
	for _, img := range images {
		kind := ""
		if m := reSeasonImage.FindStringSubmatch(img.Name()); m != nil {
			kind = m[2]
		}
		p := rel(img)
		switch kind {
		case "", "poster":
			if set.Primary == "" {
				set.Primary = p
			}
		case "banner":
			if set.Banner == "" {
				set.Banner = p
			}
		case "fanart", "backdrop":
			if set.Backdrop == "" {
				set.Backdrop = p
			}
		case "thumb":
			if set.Thumb == "" {
				set.Thumb = p
			}
		}
	}
	return set
}

func scanSeasonDir(c *Collection, show *Show, showDir, seasonDir string, number int) *Season {
	l, err := readListing(path.Join(c.Directory, showDir, seasonDir))
	if err != nil {
		log.Printf("scan: %s/%s: %v", showDir, seasonDir, err)
		return nil
	}

	rel := func(e dirEntry) string { return path.Join(showDir, seasonDir, e.Name()) }

	season := &Season{
		ID:           SeasonID(show.ID, number),
		ShowID:       show.ID,
		CollectionID: c.ID,
		Name:         seasonName(number),
		SeasonNumber: number,
		Path:         path.Join(showDir, seasonDir),
		Episodes:     make(map[int]*Episode),
	}

	for _, v := range l.videos {
		num, ok := metadata.ParseEpisodeName(v.Name())
		if !ok || num.Season != number {
			continue
		}
		e := buildEpisode(c, season, v, num, l, rel)
		if e != nil {
			season.Episodes[e.EpisodeNumber] = e
		}
	}
	return season
}

func buildEpisode(c *Collection, season *Season, video dirEntry, num metadata.EpisodeNumber,
	l *dirListing, rel func(dirEntry) string) *Episode {

	created := video.Createtime()
	e := &Episode{
		ID:            EpisodeID(season.ID, num.Episode),
		ShowID:        season.ShowID,
		SeasonID:      season.ID,
		CollectionID:  c.ID,
		Name:          metadata.CleanTitle(video.Name()),
		SeasonNumber:  num.Season,
		EpisodeNumber: num.Episode,
		EndEpisode:    num.End,
		Path:          season.Path,
		DateCreated:   created,
		DateModified:  created,
		Source: MediaSource{
			Path:      rel(video),
			Container: ext(video.Name()),
			Size:      video.Size(),
			Subtitles: bindSubtitles(video.Name(), l.subtitles, rel),
		},
	}

	// thumbnails share the video's stem, "name-thumb.jpg" or "name.jpg"
	videoStem := stem(video.Name())
	var epImages []dirEntry
	for _, img := range l.images {
		s := stem(img.Name())
		if s == videoStem ||
			strings.HasPrefix(img.Name(), videoStem+"-") ||
			strings.HasPrefix(img.Name(), videoStem+".") {
			epImages = append(epImages, img)
		}
	}
	e.Images = classifyImages(epImages, rel)

	// a sidecar named after the video overrides the derived title
	nfoPath := path.Join(c.Directory, season.Path, videoStem+".nfo")
	if n := metadata.Load(nfoPath); n != nil {
		if n.Title != "" {
			e.Name = n.Title
		}
		e.Overview = n.Plot
		e.CommunityRating = n.Rating
		if !n.Premiered.IsZero() {
			e.PremiereDate = n.Premiered
		}
		if n.Runtime > 0 {
			e.RuntimeTicks = int64(n.Runtime) * ticksPerMinute
		}
	}
	return e
}
