package location

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Geocoder resolves a place name or address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Coordinates, error)
}

var (
	mapsURLPattern    = regexp.MustCompile(`https?://(?:www\.)?google\.com/maps[^\s]+`)
	atPattern         = regexp.MustCompile(`@(-?\d+\.\d+),(-?\d+\.\d+)`)
	qParamPattern     = regexp.MustCompile(`[?&]q=(-?\d+\.\d+),(-?\d+\.\d+)`)
	llParamPattern    = regexp.MustCompile(`[?&]ll=(-?\d+\.\d+),(-?\d+\.\d+)`)
	placePathPattern  = regexp.MustCompile(`/maps/place/([^/?#]+)`)
	placeParamPattern = regexp.MustCompile(`[?&](?:q|query)=([^&#\s]+)`)
	coordPattern      = regexp.MustCompile(`(-?\d+\.\d+)(?:\s*,\s*|\s+)(-?\d+\.\d+)`)
	spanSplitter      = regexp.MustCompile(`[,;]|\bat\b|\bin\b|\bnear\b`)
)

// Parser extracts a location from raw query text. Precedence is
// coordinate pair, then map link, then geocoded place name; the first
// method that yields an in-range coordinate wins.
type Parser struct {
	geocoder Geocoder
	log      *logrus.Logger
}

// NewParser creates a parser. The geocoder may be nil, in which case
// named-place resolution is skipped.
func NewParser(geocoder Geocoder, log *logrus.Logger) *Parser {
	if log == nil {
		log = logrus.New()
	}
	return &Parser{geocoder: geocoder, log: log}
}

// Extract parses a location out of text. The only side effect is a
// best-effort geocode call for named places; geocode failure degrades
// to SourceNone rather than an error.
func (p *Parser) Extract(ctx context.Context, text string) Parsed {
	urlSpan := mapsURLPattern.FindString(text)
	bare := text
	if urlSpan != "" {
		bare = strings.TrimSpace(strings.Replace(text, urlSpan, " ", 1))
	}

	if parsed, ok := p.matchCoordinatePair(bare); ok {
		return parsed
	}

	if urlSpan != "" {
		if coords, ok := coordsFromMapsURL(urlSpan); ok {
			return Parsed{
				Coordinates: coords,
				Source:      SourceMapLink,
				Span:        urlSpan,
				Remainder:   bare,
			}
		}
		if parsed, ok := p.geocodeMapsURLPlace(ctx, urlSpan, bare); ok {
			return parsed
		}
		p.log.WithField("url", urlSpan).Debug("maps url carries no resolvable place, falling through to geocoding")
	}

	return p.geocodePlace(ctx, bare)
}

// matchCoordinatePair scans for bare "lat, lon" pairs. When several
// appear, the last in-range pair wins; out-of-range pairs are rejected,
// never clamped.
func (p *Parser) matchCoordinatePair(text string) (Parsed, bool) {
	matches := coordPattern.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		lat, err1 := strconv.ParseFloat(text[m[2]:m[3]], 64)
		lng, err2 := strconv.ParseFloat(text[m[4]:m[5]], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		coords := Coordinates{Latitude: lat, Longitude: lng}
		if !coords.Valid() {
			p.log.WithFields(logrus.Fields{
				"latitude":  lat,
				"longitude": lng,
			}).Warn("coordinate pair outside valid range, rejecting")
			continue
		}
		span := text[m[0]:m[1]]
		return Parsed{
			Coordinates: coords,
			Source:      SourceCoordinate,
			Span:        span,
			Remainder:   strings.TrimSpace(text[:m[0]] + text[m[1]:]),
		}, true
	}
	return Parsed{}, false
}

// coordsFromMapsURL reads coordinates out of a Google Maps URL. The
// supported forms are @lat,lng path segments and q=/ll= query params.
func coordsFromMapsURL(url string) (Coordinates, bool) {
	for _, pattern := range []*regexp.Regexp{atPattern, qParamPattern, llParamPattern} {
		m := pattern.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(m[1], 64)
		lng, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		coords := Coordinates{Latitude: lat, Longitude: lng}
		if coords.Valid() {
			return coords, true
		}
	}
	return Coordinates{}, false
}

// placeFromMapsURL reads a place name out of a Google Maps URL that
// carries no coordinates: /maps/place/<name> path segments and
// non-numeric q=/query= params.
func placeFromMapsURL(urlSpan string) string {
	for _, pattern := range []*regexp.Regexp{placePathPattern, placeParamPattern} {
		m := pattern.FindStringSubmatch(urlSpan)
		if m == nil {
			continue
		}
		name := m[1]
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		} else {
			name = strings.ReplaceAll(name, "+", " ")
		}
		name = strings.TrimSpace(name)
		if name == "" || coordPattern.MatchString(name) {
			continue
		}
		return name
	}
	return ""
}

// geocodeMapsURLPlace resolves a place name embedded in a maps URL by
// forwarding it to the geocoder.
func (p *Parser) geocodeMapsURLPlace(ctx context.Context, urlSpan, remainder string) (Parsed, bool) {
	name := placeFromMapsURL(urlSpan)
	if name == "" || p.geocoder == nil {
		return Parsed{}, false
	}

	coords, err := p.geocoder.Geocode(ctx, name)
	if err != nil {
		p.log.WithError(err).WithField("place", name).Debug("maps url place geocode failed")
		return Parsed{}, false
	}
	if !coords.Valid() {
		return Parsed{}, false
	}
	return Parsed{
		Coordinates: coords,
		Source:      SourcePlace,
		Span:        name,
		Remainder:   remainder,
	}, true
}

func (p *Parser) geocodePlace(ctx context.Context, text string) Parsed {
	none := Parsed{Source: SourceNone, Remainder: strings.TrimSpace(text)}
	if p.geocoder == nil || strings.TrimSpace(text) == "" {
		return none
	}

	for _, candidate := range placeCandidates(text) {
		coords, err := p.geocoder.Geocode(ctx, candidate)
		if err != nil {
			p.log.WithError(err).WithField("candidate", candidate).Debug("geocode attempt failed")
			continue
		}
		if !coords.Valid() {
			continue
		}
		return Parsed{
			Coordinates: coords,
			Source:      SourcePlace,
			Span:        candidate,
			Remainder:   strings.TrimSpace(strings.Replace(text, candidate, "", 1)),
		}
	}
	return none
}

// placeCandidates splits text into spans that could plausibly be an
// address or place name: spans over 10 characters, then the whole text
// as a fallback.
func placeCandidates(text string) []string {
	var candidates []string
	for _, part := range spanSplitter.Split(text, -1) {
		part = strings.TrimSpace(part)
		if len(part) > 10 {
			candidates = append(candidates, part)
		}
	}
	full := strings.TrimSpace(text)
	for _, c := range candidates {
		if c == full {
			return candidates
		}
	}
	return append(candidates, full)
}
