package jellyfin

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/collection/metadata"
	"github.com/finchmedia/finch-server/idhash"
)

// GET /Persons/{name}
//
// People exist only as credits on scanned items, so a person lookup
// walks the library.
func (s *Service) personHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	name := mux.Vars(r)["name"]

	var found *metadata.Person
	for _, c := range s.library.Collections() {
		for _, item := range c.Items() {
			var people []metadata.Person
			switch item.Kind {
			case collection.KindMovie:
				people = item.Movie.People
			case collection.KindSeries:
				people = item.Show.People
			}
			for i := range people {
				if strings.EqualFold(people[i].Name, name) {
					found = &people[i]
					break
				}
			}
			if found != nil {
				break
			}
		}
		if found != nil {
			break
		}
	}
	if found == nil {
		notFound(w)
		return
	}

	serveJSON(w, JFItem{
		ID:       idhash.IdHash(found.Name),
		ServerID: s.serverID,
		Name:     found.Name,
		Type:     "Person",
	})
}
