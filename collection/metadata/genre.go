package metadata

import "strings"

// canonicalGenres maps the lowercased spellings seen in sidecar files to
// one display form, so "sci-fi", "Sci-Fi" and "Science Fiction" do not
// show up as three genres.
var canonicalGenres = map[string]string{
	"action":          "Action",
	"adventure":       "Adventure",
	"animation":       "Animation",
	"biography":       "Biography",
	"comedy":          "Comedy",
	"crime":           "Crime",
	"documentary":     "Documentary",
	"drama":           "Drama",
	"family":          "Family",
	"fantasy":         "Fantasy",
	"film noir":       "Film Noir",
	"film-noir":       "Film Noir",
	"history":         "History",
	"horror":          "Horror",
	"music":           "Music",
	"musical":         "Musical",
	"mystery":         "Mystery",
	"reality":         "Reality",
	"reality-tv":      "Reality",
	"romance":         "Romance",
	"sci-fi":          "Science Fiction",
	"science fiction": "Science Fiction",
	"science-fiction": "Science Fiction",
	"short":           "Short",
	"sport":           "Sport",
	"thriller":        "Thriller",
	"war":             "War",
	"western":         "Western",
}

// NormalizeGenre returns the canonical display form of a genre, or the
// input title-cased when it is not a known variant.
func NormalizeGenre(genre string) string {
	g := strings.ToLower(strings.TrimSpace(genre))
	if g == "" {
		return ""
	}
	if canonical, ok := canonicalGenres[g]; ok {
		return canonical
	}
	// unknown genre, keep it but tidy the casing
	words := strings.Fields(g)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
