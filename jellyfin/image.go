// Item artwork delivery: custom uploads from the database first, then
// the artwork the scanner found on disk, resized on demand.
package jellyfin

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/finchmedia/finch-server/collection"
	"github.com/finchmedia/finch-server/database/model"
	"github.com/finchmedia/finch-server/idhash"
)

// imagePath resolves an image type name to the item's artwork path.
func imagePath(images collection.ImageSet, imageType string) string {
	switch strings.ToLower(imageType) {
	case "primary":
		return images.Primary
	case "backdrop":
		return images.Backdrop
	case "logo":
		return images.Logo
	case "thumb":
		return images.Thumb
	case "banner":
		return images.Banner
	}
	return ""
}

// GET /Items/{itemid}/Images/{type}
func (s *Service) itemImageHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	itemID := vars["itemid"]
	imageType := vars["type"]

	// custom artwork wins over scanned artwork
	if meta, data, err := s.db.GetImage(r.Context(), itemID, imageType); err == nil {
		w.Header().Set("Content-Type", meta.MimeType)
		w.Header().Set("ETag", `"`+meta.ETag+`"`)
		w.Header().Set("Cache-Control", "max-age=86400")
		if r.Method == http.MethodHead {
			return
		}
		io.Copy(w, bytes.NewReader(data))
		return
	}

	collID, ref := s.library.GetItem(itemID)
	if !ref.Valid() {
		notFound(w)
		return
	}
	rel := imagePath(ref.Images(), imageType)
	if rel == "" {
		notFound(w)
		return
	}
	c := s.library.GetCollection(collID)
	if c == nil {
		notFound(w)
		return
	}

	// clients request poster sizes via maxWidth/quality; the resizer
	// reads w/h/q
	q := r.URL.Query()
	mapParam(q, "maxWidth", "w")
	mapParam(q, "maxHeight", "h")
	mapParam(q, "fillWidth", "w")
	mapParam(q, "fillHeight", "h")
	mapParam(q, "quality", "q")
	r.URL.RawQuery = q.Encode()

	quality := 0
	if strings.EqualFold(imageType, "primary") {
		quality = s.posterQuality
	}
	f, err := s.resizer.OpenFile(w, r, c.AbsPath(rel), quality)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()

	w.Header().Set("ETag", `"`+idhash.IdHash(rel)+`"`)
	w.Header().Set("Cache-Control", "max-age=86400")
	if r.Method == http.MethodHead {
		return
	}
	io.Copy(w, f)
}

func mapParam(q map[string][]string, from, to string) {
	if v, ok := q[from]; ok && len(v) > 0 {
		if _, exists := q[to]; !exists {
			q[to] = v
		}
	}
}

// POST /Items/{itemid}/Images/{type}
//
// Stores custom artwork. The body is base64 image data, content type in
// the header, per the upstream API.
func (s *Service) itemImagePostHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	vars := mux.Vars(r)

	body, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, r.Body))
	if err != nil || len(body) == 0 {
		badRequest(w, "invalid image payload")
		return
	}
	sum := sha256.Sum256(body)
	meta := model.ImageMetadata{
		MimeType: r.Header.Get("Content-Type"),
		ETag:     hex.EncodeToString(sum[:8]),
		Size:     int64(len(body)),
		Updated:  time.Now(),
	}
	if err := s.db.StoreImage(r.Context(), vars["itemid"], vars["type"], meta, body); err != nil {
		internalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /Items/{itemid}/Images/{type}
func (s *Service) itemImageDeleteHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	vars := mux.Vars(r)
	if err := s.db.DeleteImage(r.Context(), vars["itemid"], vars["type"]); err != nil {
		internalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
