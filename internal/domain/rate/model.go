package rate

import "time"

// VehicleType is the pricing category of a vehicle.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
)

// VehicleTypes lists every supported category in display order.
func VehicleTypes() []VehicleType {
	return []VehicleType{VehicleCar, VehicleMotorcycle}
}

// Valid reports whether v is a supported category.
func (v VehicleType) Valid() bool {
	return v == VehicleCar || v == VehicleMotorcycle
}

// Rule is the pricing policy for one vehicle category.
type Rule struct {
	VehicleType   VehicleType `json:"vehicle_type"`
	FirstHourRate int64       `json:"first_hour_rate"`
	NextHourRate  int64       `json:"next_hour_rate"`
	DailyMaxRate  *int64      `json:"daily_max_rate,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
