package report

import "context"

// Repository reads daily aggregates. Aggregates are only written as part of a
// session checkout, see parking.SessionRepository.
type Repository interface {
	Get(ctx context.Context, date string) (*DailyAggregate, error)
	Range(ctx context.Context, startDate, endDate string) ([]DailyAggregate, error)
	List(ctx context.Context, q DailyQuery) ([]DailyAggregate, int, error)
}
