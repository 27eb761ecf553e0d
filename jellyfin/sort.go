// Query-parameter sorting and pagination of item lists.
package jellyfin

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// applySort orders items by the comma-separated sortBy keys, primary
// first. sortOrder=descending reverses the whole ordering. Unknown keys
// and "random" leave the relative order untouched; items missing a
// value sort as the type's minimum.
func applySort(items []JFItem, q url.Values) []JFItem {
	keys := splitList(q.Get("sortBy"))
	if len(keys) == 0 {
		return items
	}
	descending := strings.EqualFold(q.Get("sortOrder"), "descending")

	sort.SliceStable(items, func(i, j int) bool {
		for _, key := range keys {
			c := compareBy(key, &items[i], &items[j])
			if c == 0 {
				continue
			}
			if descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return items
}

// compareBy returns -1, 0 or 1 for one sort key.
func compareBy(key string, a, b *JFItem) int {
	switch normalizeSortKey(key) {
	case "communityrating":
		return cmpFloat(float64(a.CommunityRating), float64(b.CommunityRating))
	case "datecreated":
		return cmpTimes(a.DateCreated, b.DateCreated)
	case "premieredate":
		return cmpTimes(a.PremiereDate, b.PremiereDate)
	case "productionyear":
		return cmpInt(a.ProductionYear, b.ProductionYear)
	case "sortname":
		return strings.Compare(sortableName(a), sortableName(b))
	case "name":
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "runtime":
		return cmpInt64(a.RunTimeTicks, b.RunTimeTicks)
	case "playcount":
		return cmpInt(playCount(a), playCount(b))
	case "dateplayed":
		return cmpTimes(lastPlayed(a), lastPlayed(b))
	case "indexnumber":
		return cmpInt(a.IndexNumber, b.IndexNumber)
	case "parentindexnumber":
		return cmpInt(a.ParentIndexNumber, b.ParentIndexNumber)
	case "random":
		// "random" means unsorted: the candidate order stands
		return 0
	default:
		return 0
	}
}

// normalizeSortKey accepts both casings clients send (SortName and
// sortName).
func normalizeSortKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func playCount(i *JFItem) int {
	if i.UserData == nil {
		return 0
	}
	return i.UserData.PlayCount
}

func lastPlayed(i *JFItem) time.Time {
	if i.UserData == nil {
		return time.Time{}
	}
	return i.UserData.LastPlayedDate
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

// applyPagination slices by startIndex/limit, returning the page, the
// pre-pagination total and the effective start index.
func applyPagination(items []JFItem, q url.Values) ([]JFItem, int, int) {
	total := len(items)
	start := atoiDefault(q.Get("startIndex"), 0)
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	items = items[start:]
	if limit := atoiDefault(q.Get("limit"), 0); limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, total, start
}

func atoiDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	return n
}
