package jellyfin

import (
	"net/url"
	"testing"
	"time"
)

func sampleItems() []JFItem {
	return []JFItem{
		{
			ID: "m1", Name: "Heat", SortName: "heat", Type: "Movie",
			Genres: []string{"Action", "Thriller"},
			GenreItems: makeNames([]string{"Action", "Thriller"}),
			CommunityRating: 8.3, ProductionYear: 1995,
			OfficialRating: "R",
			PremiereDate:   time.Date(1995, 12, 15, 0, 0, 0, 0, time.UTC),
			UserData:       &JFUserData{Played: true, PlayCount: 3, IsFavorite: true},
		},
		{
			ID: "m2", Name: "The Iron Giant", SortName: "iron giant", Type: "Movie",
			Genres: []string{"Animation"},
			GenreItems: makeNames([]string{"Animation"}),
			CommunityRating: 8.1, ProductionYear: 1999,
			OfficialRating: "PG",
			PremiereDate:   time.Date(1999, 8, 6, 0, 0, 0, 0, time.UTC),
			UserData:       &JFUserData{},
		},
		{
			ID: "s1", Name: "Slow Horses", SortName: "slow horses", Type: "Series",
			Genres: []string{"Drama", "Thriller"},
			GenreItems: makeNames([]string{"Drama", "Thriller"}),
			CommunityRating: 8.0, ProductionYear: 2022,
			UserData:        &JFUserData{},
		},
		{
			ID: "e1", Name: "Pilot", Type: "Episode",
			SeriesID: "s1", SeasonID: "s1:S01",
			IndexNumber: 1, ParentIndexNumber: 1,
			UserData: &JFUserData{},
		},
	}
}

func filterIDs(t *testing.T, query string) []string {
	t.Helper()
	q, err := url.ParseQuery(query)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, item := range applyFilters(sampleItems(), q) {
		ids = append(ids, item.ID)
	}
	return ids
}

func wantIDs(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestFilterItemTypes(t *testing.T) {
	wantIDs(t, filterIDs(t, "includeItemTypes=Movie"), "m1", "m2")
	wantIDs(t, filterIDs(t, "includeItemTypes=movie,series"), "m1", "m2", "s1")
	wantIDs(t, filterIDs(t, "excludeItemTypes=Movie,Episode"), "s1")
}

func TestFilterIDs(t *testing.T) {
	wantIDs(t, filterIDs(t, "ids=m2,s1"), "m2", "s1")
	wantIDs(t, filterIDs(t, "excludeItemIds=m1,e1"), "m2", "s1")
}

func TestFilterGenres(t *testing.T) {
	wantIDs(t, filterIDs(t, "genres=Thriller"), "m1", "s1")
	wantIDs(t, filterIDs(t, "genres=thriller|animation"), "m1", "m2", "s1")
}

func TestFilterSeries(t *testing.T) {
	wantIDs(t, filterIDs(t, "seriesId=s1"), "e1")
	wantIDs(t, filterIDs(t, "seasonId=s1:S01"), "e1")
	wantIDs(t, filterIDs(t, "parentIndexNumber=1&indexNumber=1"), "e1")
}

func TestFilterNames(t *testing.T) {
	wantIDs(t, filterIDs(t, "nameStartsWith=h"), "m1")
	wantIDs(t, filterIDs(t, "nameStartsWithOrGreater=iron"), "m2", "s1", "e1")
	wantIDs(t, filterIDs(t, "nameLessThan=iron"), "m1")
}

func TestFilterRatings(t *testing.T) {
	wantIDs(t, filterIDs(t, "officialRatings=R"), "m1")
	wantIDs(t, filterIDs(t, "minCommunityRating=8.2"), "m1")
}

func TestFilterDatesAndYears(t *testing.T) {
	wantIDs(t, filterIDs(t, "minPremiereDate=1999-01-01T00:00:00Z&maxPremiereDate=2000-01-01T00:00:00Z"), "m2")
	wantIDs(t, filterIDs(t, "years=1995,2022"), "m1", "s1")
}

func TestFilterPlayState(t *testing.T) {
	wantIDs(t, filterIDs(t, "isPlayed=true"), "m1")
	wantIDs(t, filterIDs(t, "isPlayed=false"), "m2", "s1", "e1")
	wantIDs(t, filterIDs(t, "isFavorite=true"), "m1")
	wantIDs(t, filterIDs(t, "filters=IsFavorite"), "m1")
	wantIDs(t, filterIDs(t, "filters=IsFavoriteOrLikes"), "m1")
}

func TestFilterComposition(t *testing.T) {
	// every specified filter must pass
	wantIDs(t, filterIDs(t, "includeItemTypes=Movie&genres=Thriller"), "m1")
	if got := filterIDs(t, "includeItemTypes=Episode&genres=Thriller"); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestFilterThenSortCommutes(t *testing.T) {
	q, _ := url.ParseQuery("includeItemTypes=Movie&sortBy=communityRating")

	a := applySort(applyFilters(sampleItems(), q), q)
	b := applyFilters(applySort(sampleItems(), q), q)
	if len(a) != len(b) {
		t.Fatalf("filter/sort order changed the result set: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("filter/sort order changed the result: %v vs %v", a[i].ID, b[i].ID)
		}
	}
}
