package customer

import "context"

// Repository defines the read operations the billing engine needs on customers
type Repository interface {
	// Get retrieves a customer with subscriptions and fundings populated
	Get(ctx context.Context, id string) (*Customer, error)

	Create(ctx context.Context, c *Customer) error
}
