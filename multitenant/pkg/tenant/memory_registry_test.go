package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoproof/photoproof-backend/internal/utils"
	"github.com/photoproof/photoproof-backend/pkg/schema"
)

func Test_MemoryRegistry_CreateStudio(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)

	studio := createStudio(t, ctx, registry, "lumen", ptr("lumen"))
	assert.NotEmpty(t, studio.ID)
	assert.True(t, studio.IsActive)
	assert.Equal(t, schema.StarterPlan, studio.Plan)

	t.Run("duplicate subdomain", func(t *testing.T) {
		_, err := registry.CreateStudio(ctx, StudioInsert{Name: "other", Email: "other@example.com", Subdomain: ptr("lumen")})
		assert.ErrorIs(t, err, ErrDuplicateSubdomain)
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := registry.CreateStudio(ctx, StudioInsert{Name: "other", Email: "lumen@example.com"})
		assert.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("reserved subdomain", func(t *testing.T) {
		_, err := registry.CreateStudio(ctx, StudioInsert{Name: "other", Email: "other@example.com", Subdomain: ptr("admin")})
		assert.ErrorIs(t, err, ErrReservedSubdomain)
		assert.ErrorIs(t, err, ErrDuplicateSubdomain)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := registry.CreateStudio(ctx, StudioInsert{Email: "other@example.com"})
		assert.ErrorIs(t, err, ErrEmptyStudioName)

		_, err = registry.CreateStudio(ctx, StudioInsert{Name: "other", Email: "other@example.com", Subdomain: ptr("Not_Valid")})
		assert.ErrorContains(t, err, "invalid subdomain")

		_, err = registry.CreateStudio(ctx, StudioInsert{Name: "other", Email: "other@example.com", Plan: "free"})
		assert.EqualError(t, err, `invalid plan "free"`)
	})
}

func Test_MemoryRegistry_UpdateStudio(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)
	studio := createStudio(t, ctx, registry, "lumen", ptr("lumen"))

	updated, err := registry.UpdateStudio(ctx, StudioUpdate{ID: studio.ID, Name: ptr("Lumen Photography"), Plan: ptr(schema.EnterprisePlan)})
	require.NoError(t, err)
	assert.Equal(t, "Lumen Photography", updated.Name)
	assert.Equal(t, schema.EnterprisePlan, updated.Plan)
	assert.True(t, updated.IsActive)

	_, err = registry.UpdateStudio(ctx, StudioUpdate{ID: studio.ID})
	assert.ErrorIs(t, err, ErrEmptyUpdateStudio)

	_, err = registry.UpdateStudio(ctx, StudioUpdate{ID: "unknown", Name: ptr("x")})
	assert.ErrorIs(t, err, ErrStudioNotFound)

	deactivated, err := registry.SetStudioActive(ctx, studio.ID, false)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	found, err := registry.FindActiveStudioByID(ctx, studio.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	stored, err := registry.GetStudio(ctx, studio.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func Test_MemoryRegistry_GetAllStudios(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)
	lumen := createStudio(t, ctx, registry, "lumen", ptr("lumen"))
	aperture := createStudio(t, ctx, registry, "aperture", ptr("aperture"))
	_, err := registry.SetStudioActive(ctx, aperture.ID, false)
	require.NoError(t, err)

	studios, err := registry.GetAllStudios(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, studios, 2)

	studios, err = registry.GetAllStudios(ctx, &QueryParams{Status: StatusFilterActive})
	require.NoError(t, err)
	require.Len(t, studios, 1)
	assert.Equal(t, lumen.ID, studios[0].ID)

	studios, err = registry.GetAllStudios(ctx, &QueryParams{Status: StatusFilterInactive})
	require.NoError(t, err)
	require.Len(t, studios, 1)
	assert.Equal(t, aperture.ID, studios[0].ID)

	studios, err = registry.GetAllStudios(ctx, &QueryParams{Query: "APER"})
	require.NoError(t, err)
	require.Len(t, studios, 1)
	assert.Equal(t, aperture.ID, studios[0].ID)

	studios, err = registry.GetAllStudios(ctx, &QueryParams{Page: 3, PageLimit: 1})
	require.NoError(t, err)
	assert.Empty(t, studios)
}

func Test_MemoryRegistry_bindings(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)
	studio := createStudio(t, ctx, registry, "lumen", ptr("lumen"))
	other := createStudio(t, ctx, registry, "aperture", nil)

	first, err := registry.CreateBinding(ctx, BindingInsert{StudioID: studio.ID, Hostname: "Photos.Lumen.com.", IsPrimary: true})
	require.NoError(t, err)
	assert.Equal(t, "photos.lumen.com", first.Hostname)
	assert.Equal(t, schema.UnverifiedBindingStatus, first.Status)
	assert.Len(t, first.VerificationToken, 32)
	assert.Nil(t, first.VerifiedAt)

	t.Run("hostnames are unique across studios", func(t *testing.T) {
		_, err := registry.CreateBinding(ctx, BindingInsert{StudioID: other.ID, Hostname: "photos.lumen.com"})
		assert.ErrorIs(t, err, ErrDuplicateHostname)
	})

	t.Run("platform hostnames cannot be claimed", func(t *testing.T) {
		_, err := registry.CreateBinding(ctx, BindingInsert{StudioID: other.ID, Hostname: "lumen.photoproof.app"})
		assert.ErrorIs(t, err, ErrInvalidHostname)
		assert.ErrorIs(t, err, utils.ErrPlatformOwnedHostname)
	})

	t.Run("invalid hostnames", func(t *testing.T) {
		for _, hostname := range []string{"", "localhost", "co.uk", "10.0.0.1", "bad_host.example.com"} {
			_, err := registry.CreateBinding(ctx, BindingInsert{StudioID: other.ID, Hostname: hostname})
			assert.ErrorIs(t, err, ErrInvalidHostname, hostname)
		}
	})

	t.Run("unknown studio", func(t *testing.T) {
		_, err := registry.CreateBinding(ctx, BindingInsert{StudioID: "unknown", Hostname: "unknown.example.com"})
		assert.ErrorIs(t, err, ErrStudioNotFound)
	})

	t.Run("a new primary binding demotes the previous one", func(t *testing.T) {
		second, err := registry.CreateBinding(ctx, BindingInsert{StudioID: studio.ID, Hostname: "lumen.photos", IsPrimary: true})
		require.NoError(t, err)

		bindings, err := registry.GetStudioBindings(ctx, studio.ID)
		require.NoError(t, err)
		require.Len(t, bindings, 2)
		assert.Equal(t, second.ID, bindings[0].ID)
		assert.True(t, bindings[0].IsPrimary)
		assert.Equal(t, first.ID, bindings[1].ID)
		assert.False(t, bindings[1].IsPrimary)
	})
}

func Test_MemoryRegistry_bindingVerificationTransitions(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)
	studio := createStudio(t, ctx, registry, "lumen", nil)
	binding, err := registry.CreateBinding(ctx, BindingInsert{StudioID: studio.ID, Hostname: "photos.lumen.com"})
	require.NoError(t, err)

	pending, err := registry.GetPendingBindings(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "bindings without a chosen method are not pending")

	_, err = registry.SetBindingVerificationMethod(ctx, binding.ID, schema.ManualVerificationMethod)
	assert.ErrorIs(t, err, ErrInvalidVerification)

	withMethod, err := registry.SetBindingVerificationMethod(ctx, binding.ID, schema.DNSTXTVerificationMethod)
	require.NoError(t, err)
	assert.Equal(t, schema.DNSTXTVerificationMethod, *withMethod.VerificationMethod)

	pending, err = registry.GetPendingBindings(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, binding.ID, pending[0].ID)

	afterCursor, err := registry.GetPendingBindings(ctx, binding.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, afterCursor, "pages start after the given binding")

	found, err := registry.FindVerifiedCustomDomain(ctx, "photos.lumen.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	verifiedAt := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	stale, err := registry.SetBindingVerified(ctx, binding.ID, "rotated-token", schema.DNSTXTVerificationMethod, verifiedAt)
	require.NoError(t, err)
	assert.False(t, stale.IsVerified(), "a proof checked against another token must not verify the binding")

	verified, err := registry.SetBindingVerified(ctx, binding.ID, binding.VerificationToken, schema.DNSTXTVerificationMethod, verifiedAt)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified())
	assert.Equal(t, verifiedAt, *verified.VerifiedAt)

	t.Run("verification is monotonic", func(t *testing.T) {
		again, err := registry.SetBindingVerified(ctx, binding.ID, binding.VerificationToken, schema.FileVerificationMethod, verifiedAt.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, verifiedAt, *again.VerifiedAt)
		assert.Equal(t, schema.DNSTXTVerificationMethod, *again.VerificationMethod)

		unchanged, err := registry.SetBindingVerificationMethod(ctx, binding.ID, schema.FileVerificationMethod)
		require.NoError(t, err)
		assert.Equal(t, schema.DNSTXTVerificationMethod, *unchanged.VerificationMethod)
	})

	found, err = registry.FindVerifiedCustomDomain(ctx, "photos.lumen.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, binding.ID, found.ID)

	pending, err = registry.GetPendingBindings(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	t.Run("revocation un-verifies and rotates the token", func(t *testing.T) {
		revoked, err := registry.RevokeBinding(ctx, binding.ID)
		require.NoError(t, err)
		assert.False(t, revoked.IsVerified())
		assert.Nil(t, revoked.VerifiedAt)
		assert.Nil(t, revoked.VerificationMethod)
		assert.NotEqual(t, binding.VerificationToken, revoked.VerificationToken)

		found, err := registry.FindVerifiedCustomDomain(ctx, "photos.lumen.com")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, registry.DeleteBinding(ctx, binding.ID))
		assert.ErrorIs(t, registry.DeleteBinding(ctx, binding.ID), ErrBindingNotFound)
		_, err := registry.GetBinding(ctx, binding.ID)
		assert.ErrorIs(t, err, ErrBindingNotFound)
	})
}

func Test_MemoryRegistry_IsHostnameAvailable(t *testing.T) {
	ctx := context.Background()
	registry := NewMemoryRegistry(testPlatformDomain)
	studio := createStudio(t, ctx, registry, "lumen", ptr("lumen"))
	_, err := registry.CreateBinding(ctx, BindingInsert{StudioID: studio.ID, Hostname: "photos.lumen.com"})
	require.NoError(t, err)

	testCases := []struct {
		host          string
		wantAvailable bool
	}{
		{host: "photos.lumen.com", wantAvailable: false},
		{host: "PHOTOS.lumen.com:443", wantAvailable: false},
		{host: "free.lumen.com", wantAvailable: true},
		{host: "lumen.photoproof.app", wantAvailable: false},
		{host: "aperture.photoproof.app", wantAvailable: true},
		{host: "admin.photoproof.app", wantAvailable: false},
		{host: "photoproof.app", wantAvailable: false},
		{host: "a.b.photoproof.app", wantAvailable: false},
	}
	for _, tc := range testCases {
		t.Run(tc.host, func(t *testing.T) {
			available, err := registry.IsHostnameAvailable(ctx, tc.host)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAvailable, available)
		})
	}

	_, err = registry.IsHostnameAvailable(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidHostname)
}
