package rate

// ValidateUpdate checks that a rate update names a known category and carries
// only non-negative amounts.
func ValidateUpdate(req UpdateRequest) error {
	if !req.VehicleType.Valid() {
		return &ValidationError{Field: "vehicle_type", Reason: "must be car or motorcycle"}
	}
	if req.FirstHourRate < 0 {
		return &ValidationError{Field: "first_hour_rate", Reason: "must be a non-negative integer"}
	}
	if req.NextHourRate < 0 {
		return &ValidationError{Field: "next_hour_rate", Reason: "must be a non-negative integer"}
	}
	if req.DailyMaxRate != nil && *req.DailyMaxRate < 0 {
		return &ValidationError{Field: "daily_max_rate", Reason: "must be a non-negative integer"}
	}
	return nil
}
