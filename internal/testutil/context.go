package testutil

import (
	"context"

	"github.com/curaflow/curaflow/internal/types"
)

// SetupContext returns a context carrying the default test company and user
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetCompanyID(ctx, types.DefaultCompanyID)
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	return ctx
}
