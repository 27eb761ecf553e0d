// Query-parameter filtering of item lists. Every specified filter must
// pass for an item to stay; an unspecified filter never excludes.
package jellyfin

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitPipeList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "|")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

// sortableName is what the name comparisons run against.
func sortableName(item *JFItem) string {
	name := item.SortName
	if name == "" {
		name = item.Name
	}
	return strings.ToLower(name)
}

// applyFilters keeps the items for which every specified query filter
// passes.
func applyFilters(items []JFItem, q url.Values) []JFItem {
	out := make([]JFItem, 0, len(items))
	for i := range items {
		if matchesFilters(&items[i], q) {
			out = append(out, items[i])
		}
	}
	return out
}

func matchesFilters(item *JFItem, q url.Values) bool {
	if v := q.Get("includeItemTypes"); v != "" {
		if !containsFold(splitList(v), item.Type) {
			return false
		}
	}
	if v := q.Get("excludeItemTypes"); v != "" {
		if containsFold(splitList(v), item.Type) {
			return false
		}
	}
	if v := q.Get("ids"); v != "" {
		if !containsFold(splitList(v), item.ID) {
			return false
		}
	}
	if v := q.Get("excludeItemIds"); v != "" {
		if containsFold(splitList(v), item.ID) {
			return false
		}
	}

	if v := q.Get("genres"); v != "" {
		if !intersectsFold(splitPipeList(v), item.Genres) {
			return false
		}
	}
	if v := q.Get("genreIds"); v != "" {
		if !intersectsFold(splitList(v), nameIDs(item.GenreItems)) {
			return false
		}
	}
	if v := q.Get("studios"); v != "" {
		if !intersectsFold(splitPipeList(v), names(item.Studios)) {
			return false
		}
	}
	if v := q.Get("studioIds"); v != "" {
		if !intersectsFold(splitList(v), nameIDs(item.Studios)) {
			return false
		}
	}

	if v := q.Get("seriesId"); v != "" && item.SeriesID != v {
		return false
	}
	if v := q.Get("seasonId"); v != "" && item.SeasonID != v {
		return false
	}
	if v := q.Get("parentIndexNumber"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || item.ParentIndexNumber != n {
			return false
		}
	}
	if v := q.Get("indexNumber"); v != "" {
		if n, err := strconv.Atoi(v); err != nil || item.IndexNumber != n {
			return false
		}
	}

	if v := q.Get("nameStartsWith"); v != "" {
		if !strings.HasPrefix(sortableName(item), strings.ToLower(v)) {
			return false
		}
	}
	if v := q.Get("nameStartsWithOrGreater"); v != "" {
		if sortableName(item) < strings.ToLower(v) {
			return false
		}
	}
	if v := q.Get("nameLessThan"); v != "" {
		if sortableName(item) >= strings.ToLower(v) {
			return false
		}
	}

	if v := q.Get("officialRatings"); v != "" {
		if !containsFold(splitPipeList(v), item.OfficialRating) {
			return false
		}
	}
	if v := q.Get("minCommunityRating"); v != "" {
		min, err := strconv.ParseFloat(v, 64)
		if err != nil || float64(item.CommunityRating) < min {
			return false
		}
	}
	if v := q.Get("minPremiereDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil || item.PremiereDate.Before(t) {
			return false
		}
	}
	if v := q.Get("maxPremiereDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil || item.PremiereDate.After(t) {
			return false
		}
	}
	if v := q.Get("years"); v != "" {
		match := false
		for _, y := range splitList(v) {
			if n, err := strconv.Atoi(y); err == nil && item.ProductionYear == n {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if v := q.Get("isPlayed"); v != "" {
		want := v == "true"
		if item.UserData == nil || item.UserData.Played != want {
			return false
		}
	}
	if v := q.Get("isFavorite"); v != "" {
		want := v == "true"
		if item.UserData == nil || item.UserData.IsFavorite != want {
			return false
		}
	}
	for _, f := range splitList(q.Get("filters")) {
		switch f {
		case "IsFavorite", "IsFavoriteOrLikes":
			if item.UserData == nil || !item.UserData.IsFavorite {
				return false
			}
		case "IsPlayed":
			if item.UserData == nil || !item.UserData.Played {
				return false
			}
		case "IsUnplayed":
			if item.UserData != nil && item.UserData.Played {
				return false
			}
		case "IsResumable":
			if item.UserData == nil || item.UserData.PlaybackPositionTicks == 0 {
				return false
			}
		}
	}

	return true
}

func intersectsFold(wanted, have []string) bool {
	for _, h := range have {
		if containsFold(wanted, h) {
			return true
		}
	}
	return false
}

func names(list []JFName) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Name)
	}
	return out
}

func nameIDs(list []JFName) []string {
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.ID)
	}
	return out
}
