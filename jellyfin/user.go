package jellyfin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/database/model"
)

func (s *Service) makeUser(u *model.User) JFUser {
	return JFUser{
		ID:                    u.ID,
		ServerID:              s.serverID,
		Name:                  u.Username,
		HasPassword:           u.Password != "",
		HasConfiguredPassword: u.Password != "",
		LastActivityDate:      u.LastSeen,
		Configuration: JFUserConfiguration{
			PlayDefaultAudioTrack:     true,
			EnableNextEpisodeAutoPlay: true,
		},
		Policy: JFUserPolicy{
			EnableMediaPlayback:      true,
			EnableAllFolders:         true,
			EnableContentDownloading: true,
		},
	}
}

// GET /Users
func (s *Service) usersHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	users, err := s.db.GetAllUsers(r.Context())
	if err != nil {
		internalError(w)
		return
	}
	out := make([]JFUser, 0, len(users))
	for i := range users {
		out = append(out, s.makeUser(&users[i]))
	}
	serveJSON(w, out)
}

// GET /Users/Public
//
// Account names are not disclosed to anonymous clients.
func (s *Service) usersPublicHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, []JFUser{})
}

// GET /Users/Me
func (s *Service) userMeHandler(w http.ResponseWriter, r *http.Request) {
	user := mustUser(w, r)
	if user == nil {
		return
	}
	serveJSON(w, s.makeUser(user))
}

// GET /Users/{userid}
func (s *Service) userHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	user, err := s.db.GetUserByID(r.Context(), mux.Vars(r)["userid"])
	if err != nil {
		notFound(w)
		return
	}
	serveJSON(w, s.makeUser(user))
}

// GET /Users/{userid}/Views
//
// Views are the configured collections, one folder per collection.
func (s *Service) userViewsHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	collections := s.library.Collections()
	items := make([]JFItem, 0, len(collections))
	for _, c := range collections {
		items = append(items, s.makeCollectionFolder(c))
	}
	serveJSON(w, JFQueryResult{Items: items, TotalRecordCount: len(items)})
}

func (s *Service) makeCollectionFolder(c *collection.Collection) JFItem {
	collectionType := "movies"
	if c.Kind == collection.KindShows {
		collectionType = "tvshows"
	}
	return JFItem{
		ID:             c.ID,
		ServerID:       s.serverID,
		Name:           c.Name,
		Type:           "CollectionFolder",
		CollectionType: collectionType,
		IsFolder:       true,
		LocationType:   "FileSystem",
		ChildCount:     len(c.Movies) + len(c.Shows),
	}
}
