// Episode filename parsing for the various naming schemes found in the wild.
package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// EpisodeNumber identifies an episode within a show. End is set when the
// file covers a range of episodes ("S03E04E05"), zero otherwise.
type EpisodeNumber struct {
	Season  int
	Episode int
	End     int
}

// The recognized naming schemes, tried in order. First match wins.
var (
	reSeasonEpisode = regexp.MustCompile(`(?i)s(\d+)e(\d+)(e(\d+))?`)
	reCrossNotation = regexp.MustCompile(`(\d+)x(\d+)(x(\d+))?`)
	reSpelledOut    = regexp.MustCompile(`(?i)season\s*(\d+).*episode\s*(\d+)`)
	reAirDate       = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
)

// ParseEpisodeName extracts season and episode numbers from a video
// filename. Daily shows named by air date map to season=year and
// episode=month*100+day so they still sort chronologically.
// Returns false when no scheme matches.
func ParseEpisodeName(filename string) (EpisodeNumber, bool) {
	if m := reSeasonEpisode.FindStringSubmatch(filename); m != nil {
		return EpisodeNumber{
			Season:  atoi(m[1]),
			Episode: atoi(m[2]),
			End:     atoi(m[4]),
		}, true
	}
	if m := reCrossNotation.FindStringSubmatch(filename); m != nil {
		return EpisodeNumber{
			Season:  atoi(m[1]),
			Episode: atoi(m[2]),
			End:     atoi(m[4]),
		}, true
	}
	if m := reSpelledOut.FindStringSubmatch(filename); m != nil {
		return EpisodeNumber{
			Season:  atoi(m[1]),
			Episode: atoi(m[2]),
		}, true
	}
	if m := reAirDate.FindStringSubmatch(filename); m != nil {
		return EpisodeNumber{
			Season:  atoi(m[1]),
			Episode: atoi(m[2])*100 + atoi(m[3]),
		}, true
	}
	return EpisodeNumber{}, false
}

// CleanTitle turns a video filename into a presentable episode title:
// the extension goes, anything from the first episode or date marker
// onwards goes, and separator characters become spaces.
func CleanTitle(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	for _, re := range []*regexp.Regexp{reSeasonEpisode, reCrossNotation, reSpelledOut, reAirDate} {
		if loc := re.FindStringIndex(name); loc != nil {
			name = name[:loc[0]]
			break
		}
	}

	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, ".", " ")
	return strings.TrimSpace(name)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
