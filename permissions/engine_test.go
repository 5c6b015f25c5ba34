package permissions_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/permissions"
	"github.com/stretchr/testify/require"
)

func shopAccesses() []permissions.ShopAccess {
	return []permissions.ShopAccess{
		{
			ShopID:      "shop-1",
			Role:        "manager",
			Permissions: permissions.Set{"canViewSales": true, "canEditProducts": true},
			IsActive:    true,
		},
		{
			ShopID:      "shop-2",
			Role:        "clerk",
			Permissions: permissions.Set{"canViewSales": true},
			IsActive:    true,
		},
		{
			ShopID:      "shop-3",
			Role:        "clerk",
			Permissions: permissions.Set{"canViewSales": true},
			IsActive:    false,
		},
	}
}

func TestEngine_EmptyAnswersFalse(t *testing.T) {
	e := permissions.NewEngine()

	require.False(t, e.Has("canViewSales"))
	require.False(t, e.HasAny("canViewSales", "canEditProducts"))
	require.True(t, e.HasAll(), "empty key list is trivially satisfied")
	require.Empty(t, e.CurrentShopID())
	require.False(t, e.Stale())
}

func TestEngine_ShopSelectionFallsBackToFirstEntry(t *testing.T) {
	e := permissions.NewEngine()

	selected := e.Populate(nil, shopAccesses(), "")
	require.Equal(t, "shop-1", selected)
	require.Equal(t, "shop-1", e.CurrentShopID())
	require.True(t, e.Has("canViewSales"))
	require.True(t, e.Has("canEditProducts"))
}

func TestEngine_ShopSelectionKeepsPersistedActiveShop(t *testing.T) {
	e := permissions.NewEngine()

	selected := e.Populate(nil, shopAccesses(), "shop-2")
	require.Equal(t, "shop-2", selected)
	require.True(t, e.Has("canViewSales"))
	require.False(t, e.Has("canEditProducts"), "shop-2 has no edit grant")
}

func TestEngine_ShopSelectionIgnoresInactivePersistedShop(t *testing.T) {
	e := permissions.NewEngine()

	selected := e.Populate(nil, shopAccesses(), "shop-3")
	require.Equal(t, "shop-1", selected, "inactive persisted shop falls back to first entry")
}

func TestEngine_ShopSelectionIgnoresUnknownPersistedShop(t *testing.T) {
	e := permissions.NewEngine()

	selected := e.Populate(nil, shopAccesses(), "closed-shop")
	require.Equal(t, "shop-1", selected)
}

func TestEngine_OrgSetWinsOverShopSets(t *testing.T) {
	e := permissions.NewEngine()

	// Conflicting grants: org denies what the shop allows.
	org := permissions.Set{"canViewSales": false, "canManageUsers": true}
	selected := e.Populate(org, shopAccesses(), "shop-1")

	require.Empty(t, selected, "org-level sessions select no shop")
	require.True(t, e.OrgLevel())
	require.False(t, e.Has("canViewSales"), "org value must win over the shop grant")
	require.True(t, e.Has("canManageUsers"))
}

func TestEngine_HasAnyHasAll(t *testing.T) {
	e := permissions.NewEngine()
	e.Populate(nil, shopAccesses(), "shop-1")

	require.True(t, e.HasAny("canManageUsers", "canViewSales"))
	require.False(t, e.HasAny("canManageUsers", "canDeleteShop"))
	require.True(t, e.HasAll("canViewSales", "canEditProducts"))
	require.False(t, e.HasAll("canViewSales", "canManageUsers"))
}

func TestEngine_SwitchShop(t *testing.T) {
	e := permissions.NewEngine()
	e.Populate(nil, shopAccesses(), "")

	require.NoError(t, e.SwitchShop("shop-2"))
	require.Equal(t, "shop-2", e.CurrentShopID())
	require.False(t, e.Has("canEditProducts"))

	err := e.SwitchShop("no-such-shop")
	require.ErrorIs(t, err, permissions.ErrShopNotFound)
	require.Equal(t, "shop-2", e.CurrentShopID(), "failed switch leaves selection unchanged")
}

func TestEngine_ClearDropsEverything(t *testing.T) {
	e := permissions.NewEngine()
	e.Populate(permissions.Set{"canManageUsers": true}, nil, "")
	require.True(t, e.Has("canManageUsers"))

	e.Clear()
	require.False(t, e.Has("canManageUsers"))
	require.Empty(t, e.CurrentShopID())
	require.True(t, e.PopulatedAt().IsZero())
}

func TestEngine_Staleness(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	e := permissions.NewEngine(
		permissions.WithStaleAfter(10*time.Minute),
		permissions.WithNowTime(func() time.Time { return now }),
	)
	e.Populate(nil, shopAccesses(), "")
	require.False(t, e.Stale())

	now = now.Add(11 * time.Minute)
	require.True(t, e.Stale())
	require.True(t, e.Has("canViewSales"), "staleness never blocks a query")
}

func TestEngine_PopulateCopiesInput(t *testing.T) {
	e := permissions.NewEngine()
	accesses := shopAccesses()
	e.Populate(nil, accesses, "")

	// Mutating the caller's slice must not leak into the engine.
	accesses[0].Permissions["canViewSales"] = false
	require.True(t, e.Has("canViewSales"))
}
