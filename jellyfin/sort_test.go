package jellyfin

import (
	"net/url"
	"testing"
	"time"
)

func sortIDs(t *testing.T, items []JFItem, query string) []string {
	t.Helper()
	q, err := url.ParseQuery(query)
	if err != nil {
		t.Fatal(err)
	}
	sorted := applySort(items, q)
	ids := make([]string, 0, len(sorted))
	for _, item := range sorted {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestSortByName(t *testing.T) {
	items := []JFItem{
		{ID: "b", Name: "Banshee"},
		{ID: "a", Name: "archer"},
		{ID: "c", Name: "Cheers"},
	}
	wantIDs(t, sortIDs(t, items, "sortBy=name"), "a", "b", "c")
	wantIDs(t, sortIDs(t, items, "sortBy=name&sortOrder=descending"), "c", "b", "a")
}

func TestSortBySortNameFallsBackToName(t *testing.T) {
	items := []JFItem{
		{ID: "m", Name: "The Matrix (1999)", SortName: "matrix"},
		{ID: "g", Name: "Gravity"},
	}
	wantIDs(t, sortIDs(t, items, "sortBy=sortName"), "g", "m")
}

func TestSortSecondaryKey(t *testing.T) {
	items := []JFItem{
		{ID: "b2", ProductionYear: 2001, Name: "B"},
		{ID: "a1", ProductionYear: 2000, Name: "Z"},
		{ID: "b1", ProductionYear: 2001, Name: "A"},
	}
	wantIDs(t, sortIDs(t, items, "sortBy=productionYear,name"), "a1", "b1", "b2")
}

func TestSortMissingValuesFirst(t *testing.T) {
	items := []JFItem{
		{ID: "rated", CommunityRating: 7.5},
		{ID: "unrated"},
	}
	// a missing rating sorts as the minimum
	wantIDs(t, sortIDs(t, items, "sortBy=communityRating"), "unrated", "rated")
}

func TestSortByDates(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []JFItem{
		{ID: "new", DateCreated: recent},
		{ID: "old", DateCreated: old},
		{ID: "never"},
	}
	wantIDs(t, sortIDs(t, items, "sortBy=dateCreated"), "never", "old", "new")
	wantIDs(t, sortIDs(t, items, "sortBy=dateCreated&sortOrder=descending"), "new", "old", "never")
}

func TestSortRandomKeepsOrder(t *testing.T) {
	items := []JFItem{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	wantIDs(t, sortIDs(t, items, "sortBy=random"), "1", "2", "3")
}

func TestSortByPlayCount(t *testing.T) {
	items := []JFItem{
		{ID: "much", UserData: &JFUserData{PlayCount: 9}},
		{ID: "none"},
		{ID: "some", UserData: &JFUserData{PlayCount: 2}},
	}
	wantIDs(t, sortIDs(t, items, "sortBy=playCount&sortOrder=descending"), "much", "some", "none")
}

func TestPagination(t *testing.T) {
	items := []JFItem{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}

	q, _ := url.ParseQuery("startIndex=1&limit=2")
	page, total, start := applyPagination(items, q)
	if total != 5 || start != 1 {
		t.Errorf("total=%d start=%d", total, start)
	}
	if len(page) != 2 || page[0].ID != "2" || page[1].ID != "3" {
		t.Errorf("page = %v", page)
	}

	q, _ = url.ParseQuery("startIndex=10")
	page, total, _ = applyPagination(items, q)
	if total != 5 || len(page) != 0 {
		t.Errorf("out-of-range start: page=%v total=%d", page, total)
	}
}
