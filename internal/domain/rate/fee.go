package rate

// CalculateFee returns the fee owed for a stay of durationMinutes under rule.
//
// Hours are billed by rounding up, and any stay up to and including the first
// hour (zero minutes included) costs exactly the first-hour rate. Longer stays
// add the next-hour rate for each started hour after the first and are clamped
// to the daily maximum when one is configured. A daily maximum of zero means
// no cap.
func CalculateFee(rule Rule, durationMinutes int64) int64 {
	if durationMinutes < 0 {
		durationMinutes = 0
	}
	hours := (durationMinutes + 59) / 60
	if hours <= 1 {
		return rule.FirstHourRate
	}

	fee := rule.FirstHourRate + (hours-1)*rule.NextHourRate
	if rule.DailyMaxRate != nil && *rule.DailyMaxRate > 0 && fee > *rule.DailyMaxRate {
		return *rule.DailyMaxRate
	}
	return fee
}
