// Play-state endpoints: played/favorite flags and progress reports.
package jellyfin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/database/model"
)

// loadOrNewUserData returns the current state for (user, item), or a
// fresh zero state for untouched items.
func (s *Service) loadOrNewUserData(ctx context.Context, userID, itemID string) model.UserData {
	if d, err := s.db.GetUserData(ctx, userID, itemID); err == nil {
		return *d
	}
	return model.UserData{UserID: userID, ItemID: itemID}
}

// POST /Users/{userid}/PlayedItems/{itemid}
// POST /UserPlayedItems/{itemid}
func (s *Service) playedItemsPostHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	itemID := mux.Vars(r)["itemid"]

	d := s.loadOrNewUserData(r.Context(), user.ID, itemID)
	d.Played = true
	d.PlayCount++
	d.Position = 0
	d.PlayedPercentage = 100
	d.Updated = time.Now()
	if err := s.db.UpsertUserData(r.Context(), d); err != nil {
		internalError(w)
		return
	}
	serveJSON(w, userDataDTO(d))
}

// DELETE /Users/{userid}/PlayedItems/{itemid}
// DELETE /UserPlayedItems/{itemid}
func (s *Service) playedItemsDeleteHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	itemID := mux.Vars(r)["itemid"]

	d := s.loadOrNewUserData(r.Context(), user.ID, itemID)
	d.Played = false
	d.Position = 0
	d.PlayedPercentage = 0
	d.Updated = time.Now()
	if err := s.db.UpsertUserData(r.Context(), d); err != nil {
		internalError(w)
		return
	}
	serveJSON(w, userDataDTO(d))
}

// POST /Users/{userid}/FavoriteItems/{itemid}
// POST /UserFavoriteItems/{itemid}
func (s *Service) favoriteItemsPostHandler(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, true)
}

// DELETE /Users/{userid}/FavoriteItems/{itemid}
// DELETE /UserFavoriteItems/{itemid}
func (s *Service) favoriteItemsDeleteHandler(w http.ResponseWriter, r *http.Request) {
	s.setFavorite(w, r, false)
}

func (s *Service) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	itemID := mux.Vars(r)["itemid"]

	d := s.loadOrNewUserData(r.Context(), user.ID, itemID)
	d.Favorite = favorite
	d.Updated = time.Now()
	if err := s.db.UpsertUserData(r.Context(), d); err != nil {
		internalError(w)
		return
	}
	serveJSON(w, userDataDTO(d))
}

// POST /Sessions/Playing
func (s *Service) playingStartHandler(w http.ResponseWriter, r *http.Request) {
	s.recordProgress(w, r)
}

// POST /Sessions/Playing/Progress
//
// The one endpoint that must be strongly consistent: the position either
// persists or the client gets a 500 and retries.
func (s *Service) playingProgressHandler(w http.ResponseWriter, r *http.Request) {
	s.recordProgress(w, r)
}

// POST /Sessions/Playing/Stopped
func (s *Service) playingStoppedHandler(w http.ResponseWriter, r *http.Request) {
	s.recordProgress(w, r)
}

func (s *Service) recordProgress(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	var req JFPlayingProgress
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.ItemID == "" {
		badRequest(w, "ItemId required")
		return
	}

	d := s.loadOrNewUserData(r.Context(), user.ID, req.ItemID)
	d.Position = req.PositionTicks
	d.Updated = time.Now()
	if _, ref := s.library.GetItem(req.ItemID); ref.Valid() {
		if total := ref.RuntimeTicks(); total > 0 {
			d.PlayedPercentage = float64(req.PositionTicks) / float64(total) * 100
		}
	}
	if err := s.db.UpsertUserData(r.Context(), d); err != nil {
		internalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userDataDTO(d model.UserData) JFUserData {
	return JFUserData{
		PlaybackPositionTicks: d.Position,
		PlayCount:             d.PlayCount,
		IsFavorite:            d.Favorite,
		Played:                d.Played,
		PlayedPercentage:      d.PlayedPercentage,
		LastPlayedDate:        d.Updated,
		Key:                   d.ItemID,
	}
}
