// Kodi-style .nfo sidecar parsing.
//
// NFO files in the wild are only approximately XML: stray ampersands,
// HTML entities and unclosed tags are all common. The decoder therefore
// walks tokens in non-strict mode and takes whatever it can get; a
// missing or malformed field simply stays empty.
package metadata

import (
	"encoding/xml"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// PersonType classifies a credited person.
type PersonType string

const (
	PersonActor    PersonType = "Actor"
	PersonDirector PersonType = "Director"
	PersonWriter   PersonType = "Writer"
	PersonProducer PersonType = "Producer"
)

// Person is one credited cast or crew member.
type Person struct {
	Name string
	Role string
	Type PersonType
}

// NFO holds the metadata extracted from a sidecar file. Zero values mean
// the tag was absent.
type NFO struct {
	Title         string
	OriginalTitle string
	SortTitle     string
	Plot          string
	Tagline       string
	MPAA          string
	// Runtime in minutes.
	Runtime   int
	Rating    float32
	Year      int
	Premiered time.Time
	Genres    []string
	Studios   []string
	People    []Person
}

// Load reads and parses an NFO sidecar. Returns nil when the file cannot
// be opened or fails to decode; decode errors are logged, not fatal. A
// file without any recognized tag yields an empty, non-nil NFO.
func Load(path string) *NFO {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	n, err := Decode(f)
	if err != nil {
		log.Printf("nfo: %s: %v", path, err)
		return nil
	}
	return n
}

// Decode parses NFO data from r.
func Decode(r io.Reader) (*NFO, error) {
	d := xml.NewDecoder(r)
	d.Strict = false
	d.AutoClose = xml.HTMLAutoClose
	d.Entity = xml.HTMLEntity

	n := &NFO{}
	var premiered, aired string
	// durations mined from fileinfo/streamdetails/video, used when the
	// <runtime> tag is absent.
	var streamMinutes, streamSeconds float64

	// path of open elements, lowercased
	var path []string

	for {
		tok, err := d.Token()
		if tok == nil || err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if name == "actor" {
				n.parseActor(d)
				continue
			}
			path = append(path, name)
		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		case xml.CharData:
			if len(path) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			tag := path[len(path)-1]
			if inVideoStream(path) {
				switch tag {
				case "duration":
					if streamMinutes == 0 {
						streamMinutes, _ = strconv.ParseFloat(text, 64)
					}
				case "durationinseconds":
					if streamSeconds == 0 {
						streamSeconds, _ = strconv.ParseFloat(text, 64)
					}
				}
				continue
			}
			// only the document element's direct children; fragments
			// without a wrapping root element occur too, so accept
			// depth one as well.
			if len(path) > 2 {
				continue
			}
			switch tag {
			case "title":
				setFirst(&n.Title, text)
			case "originaltitle":
				setFirst(&n.OriginalTitle, text)
			case "sorttitle":
				setFirst(&n.SortTitle, text)
			case "plot", "overview":
				setFirst(&n.Plot, text)
			case "tagline":
				setFirst(&n.Tagline, text)
			case "mpaa":
				setFirst(&n.MPAA, text)
			case "runtime":
				if n.Runtime == 0 {
					if mins, err := strconv.ParseFloat(text, 64); err == nil {
						n.Runtime = int(mins)
					}
				}
			case "rating":
				if n.Rating == 0 {
					if v, err := strconv.ParseFloat(text, 64); err == nil {
						n.Rating = float32(math.Round(v*10) / 10)
					}
				}
			case "year":
				if n.Year == 0 {
					n.Year, _ = strconv.Atoi(text)
				}
			case "premiered":
				setFirst(&premiered, text)
			case "aired":
				setFirst(&aired, text)
			case "genre":
				n.Genres = append(n.Genres, text)
			case "studio":
				n.Studios = append(n.Studios, text)
			case "credits":
				n.People = append(n.People, Person{Name: text, Type: PersonWriter})
			case "director":
				n.People = append(n.People, Person{Name: text, Type: PersonDirector})
			case "producer":
				n.People = append(n.People, Person{Name: text, Type: PersonProducer})
			}
		}
	}

	if n.Runtime == 0 {
		if streamMinutes > 0 {
			n.Runtime = int(streamMinutes)
		} else if streamSeconds > 0 {
			n.Runtime = int(math.Round(streamSeconds / 60))
		}
	}
	if date := firstNonEmpty(premiered, aired); date != "" {
		if t, err := parseDate(date); err == nil {
			n.Premiered = t
			if n.Year == 0 {
				n.Year = t.Year()
			}
		}
	}
	return n, nil
}

// parseActor consumes one <actor> block and records its name and role.
func (n *NFO) parseActor(d *xml.Decoder) {
	var p Person
	var current string
	for {
		tok, err := d.Token()
		if tok == nil || err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = strings.ToLower(t.Name.Local)
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				break
			}
			switch current {
			case "name":
				setFirst(&p.Name, text)
			case "role":
				setFirst(&p.Role, text)
			}
		case xml.EndElement:
			if strings.ToLower(t.Name.Local) == "actor" {
				if p.Name != "" {
					p.Type = PersonActor
					n.People = append(n.People, p)
				}
				return
			}
			current = ""
		}
	}
	if p.Name != "" {
		p.Type = PersonActor
		n.People = append(n.People, p)
	}
}

func inVideoStream(path []string) bool {
	for i := 0; i+2 < len(path); i++ {
		if path[i] == "fileinfo" && path[i+1] == "streamdetails" && path[i+2] == "video" {
			return true
		}
	}
	return false
}

func setFirst(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "2006"}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
