package bill

import (
	"time"
)

// Sequence is a company's bill number sequence for one MMYY period. NextValue
// is the next number to assign: created at 1 on first use, read once per
// batch, and committed to last-used+1 when the batch succeeds. It is never
// decremented outside explicit administrative correction.
type Sequence struct {
	ID        string
	CompanyID string
	Prefix    string
	NextValue int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
