package customer

import (
	"github.com/curaflow/curaflow/internal/domain/funding"
	"github.com/curaflow/curaflow/internal/domain/subscription"
	"github.com/curaflow/curaflow/internal/types"
)

// Customer is an agency customer with their subscriptions and fundings
// populated. The billing engine only ever reads customers.
type Customer struct {
	ID            string                       `json:"id"`
	Name          string                       `json:"name"`
	Subscriptions []*subscription.Subscription `json:"subscriptions,omitempty"`
	Fundings      []*funding.Funding           `json:"fundings,omitempty"`
	types.BaseModel
}

// Subscription returns the customer's subscription with the given id, or nil
func (c *Customer) Subscription(id string) *subscription.Subscription {
	for _, s := range c.Subscriptions {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// FundingsForSubscription returns the customer's fundings targeting a subscription
func (c *Customer) FundingsForSubscription(subscriptionID string) []*funding.Funding {
	var result []*funding.Funding
	for _, f := range c.Fundings {
		if f.SubscriptionID == subscriptionID {
			result = append(result, f)
		}
	}
	return result
}
