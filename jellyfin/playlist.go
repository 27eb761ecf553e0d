package jellyfin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/database/model"
)

// getOwnPlaylist loads a playlist and enforces ownership: playlists are
// private to their creator.
func (s *Service) getOwnPlaylist(w http.ResponseWriter, r *http.Request, userID string) *model.Playlist {
	p, err := s.db.GetPlaylist(r.Context(), mux.Vars(r)["playlistid"])
	if errors.Is(err, model.ErrNotFound) {
		notFound(w)
		return nil
	}
	if err != nil {
		internalError(w)
		return nil
	}
	if p.UserID != userID {
		serveError(w, http.StatusForbidden, "not your playlist")
		return nil
	}
	return p
}

// POST /Playlists
func (s *Service) playlistCreateHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	var req JFCreatePlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}
	if req.Name == "" {
		badRequest(w, "Name required")
		return
	}

	id, err := s.db.CreatePlaylist(r.Context(), model.Playlist{
		UserID:  user.ID,
		Name:    req.Name,
		ItemIDs: req.IDs,
	})
	if err != nil {
		internalError(w)
		return
	}
	serveJSON(w, JFCreatePlaylistResponse{ID: id})
}

// GET /Playlists/{playlistid}
func (s *Service) playlistGetHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	p := s.getOwnPlaylist(w, r, user.ID)
	if p == nil {
		return
	}
	serveJSON(w, JFItem{
		ID:         p.ID,
		ServerID:   s.serverID,
		Name:       p.Name,
		Type:       "Playlist",
		IsFolder:   true,
		ChildCount: len(p.ItemIDs),
	})
}

// GET /Playlists/{playlistid}/Items
func (s *Service) playlistItemsHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	p := s.getOwnPlaylist(w, r, user.ID)
	if p == nil {
		return
	}

	items := make([]JFItem, 0, len(p.ItemIDs))
	for _, id := range p.ItemIDs {
		if _, ref := s.library.GetItem(id); ref.Valid() {
			items = append(items, s.makeItem(r.Context(), user, ref))
		}
	}
	page, total, start := applyPagination(items, r.URL.Query())
	serveJSON(w, JFQueryResult{Items: page, TotalRecordCount: total, StartIndex: start})
}

// POST /Playlists/{playlistid}/Items?ids=...
func (s *Service) playlistAddItemsHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	p := s.getOwnPlaylist(w, r, user.ID)
	if p == nil {
		return
	}
	for _, id := range splitList(r.URL.Query().Get("ids")) {
		if err := s.db.AddItemToPlaylist(r.Context(), p.ID, id); err != nil {
			internalError(w)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /Playlists/{playlistid}/Items?entryIds=...
func (s *Service) playlistRemoveItemsHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	p := s.getOwnPlaylist(w, r, user.ID)
	if p == nil {
		return
	}
	ids := splitList(r.URL.Query().Get("entryIds"))
	if len(ids) == 0 {
		ids = splitList(r.URL.Query().Get("ids"))
	}
	for _, id := range ids {
		if err := s.db.RemoveItemFromPlaylist(r.Context(), p.ID, id); err != nil {
			internalError(w)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
