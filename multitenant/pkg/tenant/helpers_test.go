package tenant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/pkg/schema"
)

const testPlatformDomain = "photoproof.app"

func createStudio(t *testing.T, ctx context.Context, store Store, name string, subdomain *string) *schema.Studio {
	t.Helper()

	studio, err := store.CreateStudio(ctx, StudioInsert{
		Name:      name,
		Email:     fmt.Sprintf("%s@example.com", name),
		Subdomain: subdomain,
	})
	require.NoError(t, err)
	return studio
}

func createVerifiedBinding(t *testing.T, ctx context.Context, store Store, studioID, hostname string) *schema.DomainBinding {
	t.Helper()

	binding, err := store.CreateBinding(ctx, BindingInsert{StudioID: studioID, Hostname: hostname})
	require.NoError(t, err)
	binding, err = store.SetBindingVerified(ctx, binding.ID, binding.VerificationToken, schema.DNSTXTVerificationMethod, time.Now())
	require.NoError(t, err)
	require.True(t, binding.IsVerified())
	return binding
}

func ptr[T any](v T) *T {
	return &v
}
