package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/finchmedia/finch-server/database/model"
)

func testRepo(t *testing.T) (*Repo, string) {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "state.db")
	r, err := New(&Config{Filename: fn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, fn
}

func TestNewRequiresFilename(t *testing.T) {
	if _, err := New(&Config{}); !errors.Is(err, model.ErrNoConfiguration) {
		t.Fatalf("err = %v, want ErrNoConfiguration", err)
	}
}

func TestUserRoundtrip(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	u := &model.User{ID: "u1", Username: "alice", Password: "hash", Created: time.Now()}
	if err := r.UpsertUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	got, err := r.GetUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != "u1" || got.Password != "hash" {
		t.Errorf("got %+v", got)
	}
	if _, err := r.GetUser(ctx, "nobody"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing user: err = %v", err)
	}

	byID, err := r.GetUserByID(ctx, "u1")
	if err != nil || byID.Username != "alice" {
		t.Errorf("GetUserByID: %+v, %v", byID, err)
	}
}

func TestUserDataWriteThrough(t *testing.T) {
	r, fn := testRepo(t)
	ctx := context.Background()

	d := model.UserData{
		UserID: "u1", ItemID: "i1",
		Position: 5_000_000_000, PlayCount: 2, Favorite: true,
		Updated: time.Now(),
	}
	if err := r.UpsertUserData(ctx, d); err != nil {
		t.Fatal(err)
	}

	got, err := r.GetUserData(ctx, "u1", "i1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Position != d.Position || !got.Favorite || got.PlayCount != 2 {
		t.Errorf("got %+v", got)
	}

	// a fresh repo over the same file must see the write: write-through,
	// not write-behind
	r2, err := New(&Config{Filename: fn})
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	got2, err := r2.GetUserData(ctx, "u1", "i1")
	if err != nil {
		t.Fatal(err)
	}
	if got2.Position != d.Position {
		t.Errorf("write not durable: %+v", got2)
	}

	if _, err := r.GetUserData(ctx, "u1", "other"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("missing playstate: err = %v", err)
	}
}

func TestResumeOrdering(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	for _, d := range []model.UserData{
		{UserID: "u1", ItemID: "slow", Position: 300},
		{UserID: "u1", ItemID: "far", Position: 900},
		{UserID: "u1", ItemID: "done", Position: 500, Played: true},
		{UserID: "u1", ItemID: "untouched", Position: 0},
		{UserID: "u2", ItemID: "far", Position: 100},
	} {
		if err := r.UpsertUserData(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	items, err := r.GetResumeItems(ctx, "u1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].ItemID != "far" || items[1].ItemID != "slow" {
		t.Errorf("resume = %+v, want far then slow", items)
	}

	items, err = r.GetResumeItems(ctx, "u1", 1)
	if err != nil || len(items) != 1 || items[0].ItemID != "far" {
		t.Errorf("limited resume = %+v, %v", items, err)
	}

	if _, err := r.GetResumeItems(ctx, "u3", 0); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("empty resume: err = %v, want ErrNotFound", err)
	}

	played, err := r.GetPlayedItems(ctx, "u1")
	if err != nil || len(played) != 1 || played[0] != "done" {
		t.Errorf("played = %v, %v", played, err)
	}
}

func TestFavorites(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	for _, d := range []model.UserData{
		{UserID: "u1", ItemID: "a", Favorite: true},
		{UserID: "u1", ItemID: "b"},
	} {
		if err := r.UpsertUserData(ctx, d); err != nil {
			t.Fatal(err)
		}
	}
	favs, err := r.GetFavoriteItems(ctx, "u1")
	if err != nil || len(favs) != 1 || favs[0] != "a" {
		t.Errorf("favorites = %v, %v", favs, err)
	}
}

func TestTokenCacheVisibility(t *testing.T) {
	r, fn := testRepo(t)
	ctx := context.Background()

	tok := model.AccessToken{
		Token: "t1", UserID: "u1", DeviceID: "d1",
		DeviceName: "TV", AppName: "client", Created: time.Now(),
	}
	if err := r.UpsertAccessToken(ctx, tok); err != nil {
		t.Fatal(err)
	}

	// visible immediately, before any flush
	got, err := r.GetAccessToken(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != "u1" || got.DeviceName != "TV" {
		t.Errorf("got %+v", got)
	}

	// not yet durable
	r2, err := New(&Config{Filename: fn})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r2.GetAccessToken(ctx, "t1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("token durable before flush: err = %v", err)
	}
	r2.Close()

	// durable after an explicit flush
	r.flushTokens(ctx)
	r3, err := New(&Config{Filename: fn})
	if err != nil {
		t.Fatal(err)
	}
	defer r3.Close()
	if got, err := r3.GetAccessToken(ctx, "t1"); err != nil || got.UserID != "u1" {
		t.Errorf("token after flush: %+v, %v", got, err)
	}

	// delete removes it everywhere
	if err := r.DeleteAccessToken(ctx, "t1"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetAccessToken(ctx, "t1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("deleted token still resolves: err = %v", err)
	}
}

func TestPlaylistOrdering(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	id, err := r.CreatePlaylist(ctx, model.Playlist{UserID: "u1", Name: "watchlist"})
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range []string{"a", "b", "c"} {
		if err := r.AddItemToPlaylist(ctx, id, item); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.RemoveItemFromPlaylist(ctx, id, "b"); err != nil {
		t.Fatal(err)
	}
	if err := r.AddItemToPlaylist(ctx, id, "d"); err != nil {
		t.Fatal(err)
	}

	items, err := r.GetPlaylistItems(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "c", "d"}
	if len(items) != len(want) {
		t.Fatalf("items = %v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items = %v, want %v", items, want)
			break
		}
	}

	p, err := r.GetPlaylist(ctx, id)
	if err != nil || p.Name != "watchlist" || len(p.ItemIDs) != 3 {
		t.Errorf("GetPlaylist: %+v, %v", p, err)
	}
}

func TestItemProjection(t *testing.T) {
	r, _ := testRepo(t)
	ctx := context.Background()

	err := r.SaveItems(ctx, []model.Item{
		{ID: "i1", Name: "Heat", Kind: "Movie", Genres: "Action,Thriller", Rating: 8.3, Year: 1995},
	})
	if err != nil {
		t.Fatal(err)
	}
	it, err := r.GetItem(ctx, "i1")
	if err != nil || it.Name != "Heat" || it.Year != 1995 {
		t.Errorf("GetItem: %+v, %v", it, err)
	}

	// a second save replaces wholesale
	if err := r.SaveItems(ctx, []model.Item{{ID: "i2", Name: "Ronin", Kind: "Movie"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.GetItem(ctx, "i1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("stale projection row survived: %v", err)
	}
}
