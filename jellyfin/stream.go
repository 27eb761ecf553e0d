// Video and subtitle delivery.
package jellyfin

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/streamer"
)

// GET /Videos/{itemid}/stream
//
// Byte-range delivery of the item's first media source. Served without
// auth; several clients fetch video with no token.
func (s *Service) videoStreamHandler(w http.ResponseWriter, r *http.Request) {
	collID, ref := s.library.GetItem(mux.Vars(r)["itemid"])
	if !ref.Valid() {
		notFound(w)
		return
	}
	sources := ref.Sources()
	if len(sources) == 0 {
		notFound(w)
		return
	}
	c := s.library.GetCollection(collID)
	if c == nil {
		notFound(w)
		return
	}
	streamer.ServeVideo(w, r, c.AbsPath(sources[0].Path))
}

// GET /Videos/{itemid}/Subtitles/{index}
//
// Serves the nth external subtitle of the item's first media source,
// matching the DeliveryUrl entries in PlaybackInfo responses.
func (s *Service) subtitleHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collID, ref := s.library.GetItem(vars["itemid"])
	if !ref.Valid() {
		notFound(w)
		return
	}
	sources := ref.Sources()
	if len(sources) == 0 {
		notFound(w)
		return
	}
	index, err := strconv.Atoi(vars["index"])
	if err != nil || index < 0 || index >= len(sources[0].Subtitles) {
		notFound(w)
		return
	}
	c := s.library.GetCollection(collID)
	if c == nil {
		notFound(w)
		return
	}
	streamer.ServeSubtitle(w, r, c.AbsPath(sources[0].Subtitles[index].Path))
}
