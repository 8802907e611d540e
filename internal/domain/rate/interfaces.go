package rate

import "context"

// Repository provides persistence for rate rules.
type Repository interface {
	Get(ctx context.Context, vehicleType VehicleType) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Upsert(ctx context.Context, rule *Rule) error
	CreateIfMissing(ctx context.Context, rule *Rule) (bool, error)
}
