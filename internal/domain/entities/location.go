package entities

// Location represents a geographic coordinate pair (latitude/longitude).
//
// Location is a small value type; it is passed and returned by value. The
// JSON names match the request bodies accepted by the API ("lat"/"long").
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
}

// NewLocation creates a Location value from latitude and longitude.
func NewLocation(lat, long float64) Location {
	return Location{
		Latitude:  lat,
		Longitude: long,
	}
}

// XY maps the location onto the plane used by the spatial index: longitude
// is the x axis and latitude is the y axis.
func (l Location) XY() (x, y float64) {
	return l.Longitude, l.Latitude
}
