// Package jellyfin implements the Jellyfin-compatible HTTP surface, so
// stock Jellyfin clients can browse, search, resume and stream the
// library.
//
// API references: https://api.jellyfin.org/ and
// https://swagger.emby.media/.
package jellyfin

import (
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/database"
	"github.com/finchmedia/finch-server/idhash"
	"github.com/finchmedia/finch-server/imageresize"
)

const serverVersion = "10.10.3"

type Options struct {
	Library *collection.Repo
	DB      database.Repository
	Resizer *imageresize.Resizer
	// ServerID identifies this server in API responses; derived from
	// the hostname when empty.
	ServerID   string
	ServerName string
	// AutoRegister creates accounts on first login.
	AutoRegister bool
	// ImageQualityPoster is the JPEG quality for resized posters; 0
	// leaves the client's choice untouched.
	ImageQualityPoster int
}

type Service struct {
	library      *collection.Repo
	db           database.Repository
	resizer      *imageresize.Resizer
	serverID     string
	serverName   string
	autoRegister bool
	posterQuality int
}

func New(o *Options) *Service {
	s := &Service{
		library:       o.Library,
		db:            o.DB,
		resizer:       o.Resizer,
		serverID:      o.ServerID,
		serverName:    o.ServerName,
		autoRegister:  o.AutoRegister,
		posterQuality: o.ImageQualityPoster,
	}
	if s.serverID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "finch"
		}
		s.serverID = idhash.IdHash(hostname)
	}
	if s.serverName == "" {
		s.serverName = "Finch"
	}
	return s
}

// RegisterHandlers attaches all Jellyfin routes to the router.
func (s *Service) RegisterHandlers(r *mux.Router) {
	r.Use(lowercaseQueryParams)

	// authed wraps handlers that want request identity resolved; the
	// handler itself decides whether anonymous access is acceptable.
	authed := func(h http.HandlerFunc) http.Handler {
		return handlers.CompressHandler(s.identify(h))
	}

	r.HandleFunc("/System/Ping", s.pingHandler)
	r.Handle("/System/Info", authed(s.systemInfoHandler))
	r.HandleFunc("/System/Info/Public", s.systemInfoPublicHandler)

	r.HandleFunc("/Users/AuthenticateByName", s.authenticateByNameHandler).Methods("POST")
	r.HandleFunc("/Users/AuthenticateWithQuickConnect", s.authenticateQuickConnectHandler).Methods("POST")
	r.Handle("/Users", authed(s.usersHandler)).Methods("GET")
	r.Handle("/Users/Me", authed(s.userMeHandler))
	r.HandleFunc("/Users/Public", s.usersPublicHandler)
	r.Handle("/Users/{userid}", authed(s.userHandler)).Methods("GET")
	r.Handle("/Users/{userid}/Views", authed(s.userViewsHandler))
	r.Handle("/UserViews", authed(s.userViewsHandler))

	r.Handle("/QuickConnect/Enabled", http.HandlerFunc(s.quickConnectEnabledHandler))
	r.HandleFunc("/QuickConnect/Initiate", s.quickConnectInitiateHandler).Methods("POST")
	r.HandleFunc("/QuickConnect/Connect", s.quickConnectConnectHandler)
	r.Handle("/QuickConnect/Authorize", authed(s.quickConnectAuthorizeHandler)).Methods("POST")

	r.Handle("/Items", authed(s.itemsHandler))
	r.Handle("/Items/Latest", authed(s.itemsLatestHandler))
	r.Handle("/Items/{itemid}", authed(s.itemHandler)).Methods("GET")
	r.Handle("/Items/{itemid}/Similar", authed(s.itemSimilarHandler))
	r.Handle("/Items/{itemid}/PlaybackInfo", authed(s.playbackInfoHandler))
	r.Handle("/Users/{userid}/Items", authed(s.itemsHandler))
	r.Handle("/Users/{userid}/Items/Latest", authed(s.itemsLatestHandler))
	r.Handle("/Users/{userid}/Items/Resume", authed(s.itemsResumeHandler))
	r.Handle("/Users/{userid}/Items/{itemid}", authed(s.itemHandler)).Methods("GET")
	r.Handle("/UserItems/Resume", authed(s.itemsResumeHandler))

	// artwork and video are fetched without auth by several clients
	r.HandleFunc("/Items/{itemid}/Images/{type}", s.itemImageHandler).Methods("GET", "HEAD")
	r.HandleFunc("/Items/{itemid}/Images/{type}/{index}", s.itemImageHandler).Methods("GET", "HEAD")
	r.Handle("/Items/{itemid}/Images/{type}", authed(s.itemImagePostHandler)).Methods("POST")
	r.Handle("/Items/{itemid}/Images/{type}", authed(s.itemImageDeleteHandler)).Methods("DELETE")
	r.HandleFunc("/Videos/{itemid}/stream", s.videoStreamHandler)
	r.HandleFunc("/Videos/{itemid}/stream.{container}", s.videoStreamHandler)
	r.HandleFunc("/Videos/{itemid}/Subtitles/{index}", s.subtitleHandler)

	r.Handle("/Shows/NextUp", authed(s.nextUpHandler))
	r.Handle("/Shows/{showid}/Seasons", authed(s.seasonsHandler))
	r.Handle("/Shows/{showid}/Episodes", authed(s.episodesHandler))

	r.Handle("/Search/Hints", authed(s.searchHintsHandler))
	r.Handle("/Genres", authed(s.genresHandler))
	r.Handle("/Persons/{name}", authed(s.personHandler))

	r.Handle("/Sessions/Playing", authed(s.playingStartHandler)).Methods("POST")
	r.Handle("/Sessions/Playing/Progress", authed(s.playingProgressHandler)).Methods("POST")
	r.Handle("/Sessions/Playing/Stopped", authed(s.playingStoppedHandler)).Methods("POST")
	r.Handle("/Users/{userid}/PlayedItems/{itemid}", authed(s.playedItemsPostHandler)).Methods("POST")
	r.Handle("/Users/{userid}/PlayedItems/{itemid}", authed(s.playedItemsDeleteHandler)).Methods("DELETE")
	r.Handle("/UserPlayedItems/{itemid}", authed(s.playedItemsPostHandler)).Methods("POST")
	r.Handle("/UserPlayedItems/{itemid}", authed(s.playedItemsDeleteHandler)).Methods("DELETE")
	r.Handle("/Users/{userid}/FavoriteItems/{itemid}", authed(s.favoriteItemsPostHandler)).Methods("POST")
	r.Handle("/Users/{userid}/FavoriteItems/{itemid}", authed(s.favoriteItemsDeleteHandler)).Methods("DELETE")
	r.Handle("/UserFavoriteItems/{itemid}", authed(s.favoriteItemsPostHandler)).Methods("POST")
	r.Handle("/UserFavoriteItems/{itemid}", authed(s.favoriteItemsDeleteHandler)).Methods("DELETE")

	r.Handle("/Playlists", authed(s.playlistCreateHandler)).Methods("POST")
	r.Handle("/Playlists/{playlistid}", authed(s.playlistGetHandler)).Methods("GET")
	r.Handle("/Playlists/{playlistid}/Items", authed(s.playlistItemsHandler)).Methods("GET")
	r.Handle("/Playlists/{playlistid}/Items", authed(s.playlistAddItemsHandler)).Methods("POST")
	r.Handle("/Playlists/{playlistid}/Items", authed(s.playlistRemoveItemsHandler)).Methods("DELETE")
}

// lowercaseQueryParams normalizes query parameter casing; clients send
// both ParentId and parentId for the same thing.
func lowercaseQueryParams(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := url.Values{}
		for key, values := range r.URL.Query() {
			normalized := strings.ToLower(key[:1]) + key[1:]
			for _, v := range values {
				params.Add(normalized, v)
			}
		}
		r.URL.RawQuery = params.Encode()
		next.ServeHTTP(w, r)
	})
}

// serveJSON writes obj as the response body.
func serveJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(obj); err != nil {
		log.Printf("response encode: %v", err)
	}
}
