package collection

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func movieFixture(t *testing.T) *Collection {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "The Matrix (1999)")
	writeFile(t, filepath.Join(dir, "The Matrix.mkv"), "video-bytes")
	writeFile(t, filepath.Join(dir, "The Matrix.en.srt"), "1\n00:00:01,000 --> 00:00:02,000\nhi\n")
	writeFile(t, filepath.Join(dir, "poster.jpg"), "img")
	writeFile(t, filepath.Join(dir, "fanart.jpg"), "img")
	writeFile(t, filepath.Join(dir, "movie.nfo"),
		`<movie><title>The Matrix</title><rating>8.7</rating><year>1999</year>`+
			`<runtime>136</runtime><genre>Action</genre><genre>Sci-Fi</genre>`+
			`<studio>Warner Bros.</studio><director>Lana Wachowski</director></movie>`)

	// no video file, must be skipped
	writeFile(t, filepath.Join(root, "Empty Movie", "cover.jpg"), "img")

	return &Collection{ID: "c1", Name: "Films", Kind: KindMovies, Directory: root}
}

func TestScanMovies(t *testing.T) {
	c := movieFixture(t)
	movies, err := scanMovies(c)
	if err != nil {
		t.Fatalf("scanMovies: %v", err)
	}
	if len(movies) != 1 {
		t.Fatalf("got %d movies, want 1", len(movies))
	}
	var m *Movie
	for _, v := range movies {
		m = v
	}

	if m.Name != "The Matrix (1999)" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.SortName != "matrix" {
		t.Errorf("SortName = %q", m.SortName)
	}
	if len(m.ID) != 20 {
		t.Errorf("ID = %q, want 20 chars", m.ID)
	}
	if len(m.Sources) != 1 {
		t.Fatalf("Sources = %v", m.Sources)
	}
	src := m.Sources[0]
	if src.Container != "mkv" || src.Size != int64(len("video-bytes")) {
		t.Errorf("source = %+v", src)
	}
	if len(src.Subtitles) != 1 || src.Subtitles[0].Language != "en" || src.Subtitles[0].Codec != "subrip" {
		t.Errorf("subtitles = %+v", src.Subtitles)
	}
	if m.Images.Primary == "" || m.Images.Backdrop == "" {
		t.Errorf("images = %+v", m.Images)
	}
	if m.CommunityRating != 8.7 || m.ProductionYear != 1999 {
		t.Errorf("rating/year = %v/%d", m.CommunityRating, m.ProductionYear)
	}
	if m.RuntimeTicks != 136*ticksPerMinute {
		t.Errorf("RuntimeTicks = %d", m.RuntimeTicks)
	}
	if len(m.Genres) != 2 || m.Genres[1] != "Science Fiction" {
		t.Errorf("Genres = %v", m.Genres)
	}
	// sidecar title matches the base name modulo the year suffix, so it
	// is kept as original title
	if m.OriginalTitle != "The Matrix" {
		t.Errorf("OriginalTitle = %q", m.OriginalTitle)
	}
	if m.DateCreated.IsZero() || m.DateModified.Before(m.DateCreated) {
		t.Errorf("dates = %v / %v", m.DateCreated, m.DateModified)
	}
}

func TestScanMoviesIDStability(t *testing.T) {
	c := movieFixture(t)
	first, err := scanMovies(c)
	if err != nil {
		t.Fatal(err)
	}
	second, err := scanMovies(c)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("scan results differ in size")
	}
	for id := range first {
		if _, ok := second[id]; !ok {
			t.Errorf("id %s not stable across rescans", id)
		}
	}
}

func showFixture(t *testing.T) *Collection {
	t.Helper()
	root := t.TempDir()
	show := filepath.Join(root, "Slow Horses")
	writeFile(t, filepath.Join(show, "poster.jpg"), "img")
	writeFile(t, filepath.Join(show, "season01-poster.jpg"), "img")
	writeFile(t, filepath.Join(show, "tvshow.nfo"),
		`<tvshow><title>Slow Horses</title><premiered>2022-04-01</premiered>`+
			`<genre>Drama</genre></tvshow>`)

	s1 := filepath.Join(show, "Season 1")
	writeFile(t, filepath.Join(s1, "Slow.Horses.S01E01.mkv"), "ep1")
	writeFile(t, filepath.Join(s1, "Slow.Horses.S01E01-thumb.jpg"), "img")
	writeFile(t, filepath.Join(s1, "Slow.Horses.S01E01.nfo"),
		`<episodedetails><title>Failure's Contagious</title><runtime>41</runtime></episodedetails>`)
	writeFile(t, filepath.Join(s1, "Slow.Horses.S01E02.mkv"), "ep2")
	// wrong season number in the filename, must be ignored
	writeFile(t, filepath.Join(s1, "Slow.Horses.S02E09.mkv"), "stray")

	sp := filepath.Join(show, "Specials")
	writeFile(t, filepath.Join(sp, "Slow.Horses.S00E01.mkv"), "special")

	// not a season directory
	writeFile(t, filepath.Join(show, "extras", "interview.mkv"), "x")

	return &Collection{ID: "c2", Name: "TV", Kind: KindShows, Directory: root}
}

func TestScanShows(t *testing.T) {
	c := showFixture(t)
	shows, err := scanShows(c)
	if err != nil {
		t.Fatalf("scanShows: %v", err)
	}
	if len(shows) != 1 {
		t.Fatalf("got %d shows, want 1", len(shows))
	}
	var s *Show
	for _, v := range shows {
		s = v
	}

	if s.ProductionYear != 2022 {
		t.Errorf("ProductionYear = %d, want derived from premiere date", s.ProductionYear)
	}
	if len(s.Seasons) != 2 {
		t.Fatalf("Seasons = %v", s.Seasons)
	}

	season := s.Seasons[1]
	if season == nil {
		t.Fatal("season 1 missing")
	}
	if season.ID != s.ID+":S01" {
		t.Errorf("season ID = %q", season.ID)
	}
	if season.Name != "Season 1" {
		t.Errorf("season Name = %q", season.Name)
	}
	if season.Images.Primary == "" {
		t.Errorf("season poster not bound: %+v", season.Images)
	}
	if len(season.Episodes) != 2 {
		t.Fatalf("episodes = %v", season.Episodes)
	}

	ep := season.Episodes[1]
	if ep == nil {
		t.Fatal("episode 1 missing")
	}
	if ep.ID != season.ID+":E01" {
		t.Errorf("episode ID = %q", ep.ID)
	}
	if ep.Name != "Failure's Contagious" {
		t.Errorf("episode Name = %q, want the sidecar title", ep.Name)
	}
	if ep.RuntimeTicks != 41*ticksPerMinute {
		t.Errorf("episode RuntimeTicks = %d", ep.RuntimeTicks)
	}
	if ep.Images.Thumb == "" {
		t.Errorf("episode thumb not bound: %+v", ep.Images)
	}
	if EpisodeRef(ep).Images().Primary == "" {
		t.Error("episode primary image should fall back to thumb")
	}
	if ep.Source.Path == "" || ep.Source.Container != "mkv" {
		t.Errorf("episode source = %+v", ep.Source)
	}

	specials := s.Seasons[0]
	if specials == nil || specials.Name != "Specials" {
		t.Fatalf("specials season = %+v", specials)
	}
}

func TestSeasonNumberFromDir(t *testing.T) {
	tests := []struct {
		dir  string
		want int
		ok   bool
	}{
		{"Specials", 0, true},
		{"specials", 0, true},
		{"Season 0", 0, true},
		{"s0", 0, true},
		{"Season 3", 3, true},
		{"season12", 12, true},
		{"S05", 5, true},
		{"extras", 0, false},
		{"Series 2", 0, false},
	}
	for _, tc := range tests {
		got, ok := seasonNumberFromDir(tc.dir)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("seasonNumberFromDir(%q) = %d,%v want %d,%v", tc.dir, got, ok, tc.want, tc.ok)
		}
	}
}
