// Package entities defines the core domain models of the vehicle finder.
// These structs live in the innermost layer of the architecture; they have no
// dependencies on databases, HTTP, or the spatial index.
package entities

// VehiclePosition is a single recorded vehicle position. Positions are created
// once while a source is loaded and never mutated afterwards, so the spatial
// index and the position repository share the same pointers.
type VehiclePosition struct {
	VehicleID           int     `json:"vehicle_id" db:"vehicle_id"`
	VehicleRegistration string  `json:"vehicle_registration" db:"vehicle_registration"`
	Latitude            float64 `json:"lat" db:"latitude"`
	Longitude           float64 `json:"long" db:"longitude"`
	RecordedTimeUTC     uint64  `json:"recorded_time_utc" db:"recorded_time_utc"`
}

// NewVehiclePosition creates a VehiclePosition.
func NewVehiclePosition(id int, registration string, lat, long float64, recordedAt uint64) *VehiclePosition {
	return &VehiclePosition{
		VehicleID:           id,
		VehicleRegistration: registration,
		Latitude:            lat,
		Longitude:           long,
		RecordedTimeUTC:     recordedAt,
	}
}

// Location returns the coordinate pair of the position.
func (v *VehiclePosition) Location() Location {
	return NewLocation(v.Latitude, v.Longitude)
}

// XY returns the position on the spatial index plane (x = longitude, y = latitude).
func (v *VehiclePosition) XY() (x, y float64) {
	return v.Longitude, v.Latitude
}
