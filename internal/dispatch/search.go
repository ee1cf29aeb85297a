package dispatch

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/shared"
)

// Match is one search hit scored against the query.
type Match struct {
	Track models.TrackRecord
	Score float64
}

// SearchResult holds songs as returned by the service plus a ranking by similarity to the query.
type SearchResult struct {
	Query  string
	Songs  []models.TrackRecord
	Ranked []Match
}

func newSearchResult(query string, songs []models.TrackRecord) *SearchResult {
	return &SearchResult{Query: query, Songs: songs, Ranked: Rank(query, songs)}
}

// Best returns the highest ranked song, or false when there were no hits.
func (r *SearchResult) Best() (Match, bool) {
	if r == nil || len(r.Ranked) == 0 {
		return Match{}, false
	}
	return r.Ranked[0], true
}

// Rank scores songs by Jaro-Winkler similarity between the query and each song's name, artist and
// "artist - name" label, keeping the best of the three. Ties keep service order.
func Rank(query string, songs []models.TrackRecord) []Match {
	q := shared.NormalizeName(query)
	out := make([]Match, 0, len(songs))
	for _, song := range songs {
		out = append(out, Match{Track: song, Score: score(q, song)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func score(q string, song models.TrackRecord) float64 {
	name := shared.NormalizeName(song.Text("name"))
	artist := shared.NormalizeName(song.Text("artist"))
	candidates := []string{name, artist, strings.TrimSpace(artist + " " + name)}

	best := 0.0
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if s := smetrics.JaroWinkler(q, c, 0.7, 4); s > best {
			best = s
		}
	}
	return best
}
