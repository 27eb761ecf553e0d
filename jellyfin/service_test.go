package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/database"
	"github.com/finchmedia/finch-server/database/sqlite"
	"github.com/finchmedia/finch-server/idhash"
	"github.com/finchmedia/finch-server/imageresize"
)

type fixture struct {
	srv     *httptest.Server
	db      database.Repository
	library *collection.Repo
	token   string
	userID  string
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newFixture builds a library with one movie collection and one show
// collection, a running service, and an authenticated user.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	movies := t.TempDir()
	write(t, filepath.Join(movies, "Heat (1995)", "Heat.mkv"), "heat-bytes")
	write(t, filepath.Join(movies, "Heat (1995)", "movie.nfo"),
		`<movie><title>Heat</title><rating>8.3</rating><year>1995</year>`+
			`<genre>Action</genre><genre>Thriller</genre></movie>`)
	write(t, filepath.Join(movies, "Ronin (1998)", "Ronin.mkv"), "ronin-bytes")
	write(t, filepath.Join(movies, "Ronin (1998)", "movie.nfo"),
		`<movie><title>Ronin</title><genre>Action</genre></movie>`)
	write(t, filepath.Join(movies, "Clueless (1995)", "Clueless.mkv"), "clueless-bytes")
	write(t, filepath.Join(movies, "Clueless (1995)", "movie.nfo"),
		`<movie><title>Clueless</title><genre>Comedy</genre></movie>`)

	shows := t.TempDir()
	s1 := filepath.Join(shows, "Slow Horses", "Season 1")
	write(t, filepath.Join(s1, "Slow.Horses.S01E01.mkv"), "e1")
	write(t, filepath.Join(s1, "Slow.Horses.S01E02.mkv"), "e2")
	write(t, filepath.Join(s1, "Slow.Horses.S01E03.mkv"), "e3")
	s2 := filepath.Join(shows, "Slow Horses", "Season 2")
	write(t, filepath.Join(s2, "Slow.Horses.S02E01.mkv"), "e4")

	db, err := sqlite.New(&sqlite.Config{Filename: filepath.Join(t.TempDir(), "state.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	library := collection.New(nil)
	if err := library.AddCollection("movies1", "Films", "movies", movies, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := library.AddCollection("shows1", "TV", "shows", shows, "", ""); err != nil {
		t.Fatal(err)
	}
	library.ScanAll(context.Background())

	svc := New(&Options{
		Library:      library,
		DB:           db,
		Resizer:      imageresize.New(imageresize.Options{Cachedir: t.TempDir()}),
		ServerID:     "srv1",
		ServerName:   "test",
		AutoRegister: true,
	})
	r := mux.NewRouter()
	svc.RegisterHandlers(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	f := &fixture{srv: srv, db: db, library: library}
	f.authenticate(t)
	return f
}

func (f *fixture) authenticate(t *testing.T) {
	t.Helper()
	body, _ := json.Marshal(JFAuthenticateByNameRequest{Username: "alice", Pw: "secret"})
	resp, err := http.Post(f.srv.URL+"/Users/AuthenticateByName", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticate: status %d", resp.StatusCode)
	}
	var result JFAuthenticateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.AccessToken == "" || result.User.ID == "" {
		t.Fatalf("authenticate: %+v", result)
	}
	f.token = result.AccessToken
	f.userID = result.User.ID
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	req.Header.Set("X-Emby-Token", f.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (f *fixture) getResult(t *testing.T, path string) JFQueryResult {
	t.Helper()
	resp := f.get(t, path)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var result JFQueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(http.MethodPost, f.srv.URL+path, &buf)
	req.Header.Set("X-Emby-Token", f.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func itemIDs(result JFQueryResult) []string {
	ids := make([]string, 0, len(result.Items))
	for _, i := range result.Items {
		ids = append(ids, i.ID)
	}
	return ids
}

func TestItemsRequireAuth(t *testing.T) {
	f := newFixture(t)
	resp, err := http.Get(f.srv.URL + "/Items")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous /Items: status %d, want 401", resp.StatusCode)
	}
}

func TestItemsListingAndFiltering(t *testing.T) {
	f := newFixture(t)

	all := f.getResult(t, "/Items")
	if all.TotalRecordCount != 4 {
		t.Errorf("total = %d, want 3 movies + 1 show", all.TotalRecordCount)
	}

	movies := f.getResult(t, "/Items?includeItemTypes=Movie&sortBy=sortName")
	if len(movies.Items) != 3 {
		t.Fatalf("movies = %v", itemIDs(movies))
	}
	if movies.Items[0].Name != "Clueless (1995)" {
		t.Errorf("first movie = %q", movies.Items[0].Name)
	}

	action := f.getResult(t, "/Items?genres=Action")
	if len(action.Items) != 2 {
		t.Errorf("action movies = %v", itemIDs(action))
	}
}

func TestItemsParentResolution(t *testing.T) {
	f := newFixture(t)

	// collection parent yields its top-level items
	inColl := f.getResult(t, "/Items?parentId=shows1")
	if len(inColl.Items) != 1 || inColl.Items[0].Type != "Series" {
		t.Fatalf("collection children = %+v", itemIDs(inColl))
	}
	showID := inColl.Items[0].ID

	// show parent yields seasons
	seasons := f.getResult(t, "/Items?parentId="+showID)
	if len(seasons.Items) != 2 || seasons.Items[0].Type != "Season" {
		t.Fatalf("show children = %+v", itemIDs(seasons))
	}

	// season parent yields episodes
	episodes := f.getResult(t, "/Items?parentId="+seasons.Items[0].ID)
	if len(episodes.Items) != 3 || episodes.Items[0].Type != "Episode" {
		t.Fatalf("season children = %+v", itemIDs(episodes))
	}
}

func TestResumeOrder(t *testing.T) {
	f := newFixture(t)
	movies := f.getResult(t, "/Items?includeItemTypes=Movie&sortBy=sortName")
	clueless, heat := movies.Items[0].ID, movies.Items[1].ID

	for id, pos := range map[string]int64{clueless: 300, heat: 900} {
		resp := f.post(t, "/Sessions/Playing/Progress", JFPlayingProgress{ItemID: id, PositionTicks: pos})
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("progress: status %d", resp.StatusCode)
		}
	}

	resume := f.getResult(t, "/Users/"+f.userID+"/Items/Resume")
	got := itemIDs(resume)
	wantIDs(t, got, heat, clueless)
}

func TestNextUp(t *testing.T) {
	f := newFixture(t)
	showID := idhash.IdHash("Slow Horses")
	season1 := collection.SeasonID(showID, 1)
	season2 := collection.SeasonID(showID, 2)

	markPlayed := func(episodeID string) {
		resp := f.post(t, "/Users/"+f.userID+"/PlayedItems/"+episodeID, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("mark played: status %d", resp.StatusCode)
		}
	}

	markPlayed(collection.EpisodeID(season1, 2))
	next := f.getResult(t, "/Shows/NextUp?seriesId=" + showID)
	wantIDs(t, itemIDs(next), collection.EpisodeID(season1, 3))

	markPlayed(collection.EpisodeID(season1, 3))
	next = f.getResult(t, "/Shows/NextUp?seriesId=" + showID)
	wantIDs(t, itemIDs(next), collection.EpisodeID(season2, 1))
}

func TestNextUpNothingPlayed(t *testing.T) {
	f := newFixture(t)
	showID := idhash.IdHash("Slow Horses")
	next := f.getResult(t, "/Shows/NextUp?seriesId=" + showID)
	wantIDs(t, itemIDs(next), collection.EpisodeID(collection.SeasonID(showID, 1), 1))
}

func TestEpisodesSorted(t *testing.T) {
	f := newFixture(t)
	showID := idhash.IdHash("Slow Horses")
	episodes := f.getResult(t, "/Shows/"+showID+"/Episodes")
	if len(episodes.Items) != 4 {
		t.Fatalf("episodes = %v", itemIDs(episodes))
	}
	prevSeason, prevEpisode := 0, 0
	for _, e := range episodes.Items {
		if e.ParentIndexNumber < prevSeason ||
			(e.ParentIndexNumber == prevSeason && e.IndexNumber < prevEpisode) {
			t.Fatalf("episodes out of order: %v", itemIDs(episodes))
		}
		prevSeason, prevEpisode = e.ParentIndexNumber, e.IndexNumber
	}
}

func TestSimilarSharesGenre(t *testing.T) {
	f := newFixture(t)
	heat := idhash.IdHash("Heat (1995)")
	ronin := idhash.IdHash("Ronin (1998)")
	clueless := idhash.IdHash("Clueless (1995)")

	similar := f.getResult(t, "/Items/"+heat+"/Similar")
	ids := itemIDs(similar)
	found := false
	for _, id := range ids {
		if id == heat {
			t.Error("similar includes the item itself")
		}
		if id == clueless {
			t.Error("similar includes an item sharing no genre")
		}
		if id == ronin {
			found = true
		}
	}
	if !found {
		t.Errorf("similar = %v, want it to include Ronin", ids)
	}
}

func TestProgressRoundtrip(t *testing.T) {
	f := newFixture(t)
	heat := idhash.IdHash("Heat (1995)")

	resp := f.post(t, "/Sessions/Playing/Progress", JFPlayingProgress{ItemID: heat, PositionTicks: 1234567})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("progress: status %d", resp.StatusCode)
	}

	itemResp := f.get(t, "/Users/"+f.userID+"/Items/"+heat)
	defer itemResp.Body.Close()
	var item JFItem
	if err := json.NewDecoder(itemResp.Body).Decode(&item); err != nil {
		t.Fatal(err)
	}
	if item.UserData == nil || item.UserData.PlaybackPositionTicks != 1234567 {
		t.Errorf("UserData = %+v", item.UserData)
	}
}

func TestVideoStreamRange(t *testing.T) {
	f := newFixture(t)
	heat := idhash.IdHash("Heat (1995)")

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/Videos/"+heat+"/stream", nil)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	buf := make([]byte, 4)
	if _, err := resp.Body.Read(buf); err != nil && err.Error() != "EOF" {
		t.Fatal(err)
	}
	if string(buf) != "heat" {
		t.Errorf("body = %q", buf)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	f := newFixture(t)

	// set a real password for the user and retire the empty one
	user, err := f.db.GetUserByID(context.Background(), f.userID)
	if err != nil {
		t.Fatal(err)
	}
	user.Password, err = hashPassword("letmein")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.db.UpsertUser(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(JFAuthenticateByNameRequest{Username: "alice", Pw: "wrong"})
	resp, err := http.Post(f.srv.URL+"/Users/AuthenticateByName", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password: status %d, want 401", resp.StatusCode)
	}
}
