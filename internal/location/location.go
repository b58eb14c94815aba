package location

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the pair lies within plausible bounds.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Source identifies how a location was derived from query text.
type Source string

const (
	SourceCoordinate Source = "coordinate"
	SourceMapLink    Source = "maplink"
	SourcePlace      Source = "place"
	SourceNone       Source = "none"
)

// Parsed is the outcome of extracting a location from free text.
type Parsed struct {
	Coordinates Coordinates
	Source      Source
	Span        string // the text that matched
	Remainder   string // the query with the location span removed
}

// Found reports whether extraction produced a usable coordinate.
func (p Parsed) Found() bool {
	switch p.Source {
	case SourceCoordinate, SourceMapLink, SourcePlace:
		return true
	}
	return false
}
