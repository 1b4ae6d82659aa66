package geo

import (
	"regexp"
	"strconv"
	"strings"
)

// Source tells where an extracted coordinate came from.
type Source string

const (
	SourceURL         Source = "url"
	SourceCoordinates Source = "coordinates"
)

// Extraction is a coordinate recovered from free-form user input.
type Extraction struct {
	Coordinate
	Source Source `json:"source"`
}

// matcher recovers a coordinate from input, or reports no match.
type matcher func(input string) (Extraction, bool)

var (
	atPattern     = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	queryPattern  = regexp.MustCompile(`[?&](?:q|query|ll)=(-?\d+\.\d+),(-?\d+\.\d+)`)
	markerPattern = regexp.MustCompile(`!3d(-?\d+\.\d+)!4d(-?\d+\.\d+)`)
	barePattern   = regexp.MustCompile(`(-?\d+\.?\d*)[,\s]+(-?\d+\.?\d*)`)
)

// matchers run in priority order; the first hit wins.
var matchers = []matcher{
	patternMatcher(atPattern, SourceURL),
	patternMatcher(queryPattern, SourceURL),
	patternMatcher(markerPattern, SourceURL),
	patternMatcher(barePattern, SourceCoordinates),
}

// Extract pulls a coordinate out of a map-service link or a "lat, lng" text.
// It never fails loudly: anything it cannot read yields ok == false.
func Extract(input string) (Extraction, bool) {
	input = normalizeInput(input)
	if input == "" {
		return Extraction{}, false
	}
	for _, m := range matchers {
		if ex, ok := m(input); ok {
			return ex, true
		}
	}
	return Extraction{}, false
}

func normalizeInput(input string) string {
	input = strings.TrimSpace(input)
	// shared links often carry an encoded comma inside q=
	input = strings.ReplaceAll(input, "%2C", ",")
	return strings.ReplaceAll(input, "%2c", ",")
}

func patternMatcher(re *regexp.Regexp, source Source) matcher {
	return func(input string) (Extraction, bool) {
		m := re.FindStringSubmatch(input)
		if m == nil {
			return Extraction{}, false
		}
		c, ok := parsePair(m[1], m[2])
		if !ok {
			return Extraction{}, false
		}
		return Extraction{Coordinate: c, Source: source}, true
	}
}

func parsePair(rawLat, rawLng string) (Coordinate, bool) {
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return Coordinate{}, false
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, false
	}
	return c, true
}
