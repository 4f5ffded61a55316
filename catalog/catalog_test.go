package catalog_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funzone/venue-engine/catalog"
	"github.com/funzone/venue-engine/core"
	"github.com/funzone/venue-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestCatalog(t *testing.T) (*catalog.Catalog, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return catalog.NewCatalog(store), store
}

func seedProduct(t *testing.T, store *sqlite.Store, rec core.Record) int64 {
	t.Helper()
	inserted, err := store.Insert(context.Background(), "products", rec)
	require.NoError(t, err)
	id, ok := inserted["product_id"].(int64)
	require.True(t, ok)
	return id
}

// =============================================================================
// PRODUCTS
// =============================================================================

func TestSearchProducts_KeywordMatchesNameBrandOrSKU(t *testing.T) {
	c, store := newTestCatalog(t)

	seedProduct(t, store, core.Record{
		"product_name": "Dino Blocks", "brand": "BuildCo", "sku": "BLK-100",
		"price_usd": "24.99", "stock_qty": 5,
	})
	seedProduct(t, store, core.Record{
		"product_name": "Race Track", "brand": "DinoToys", "sku": "TRK-200",
		"price_usd": "39.99", "stock_qty": 3,
	})
	seedProduct(t, store, core.Record{
		"product_name": "Puzzle Cube", "brand": "MindCo", "sku": "PZL-300",
		"price_usd": "9.99", "stock_qty": 8,
	})

	products, err := c.SearchProducts(context.Background(), catalog.ProductFilter{Keyword: "dino"})

	require.NoError(t, err)
	require.Len(t, products, 2, "keyword matches name OR brand")
	// Ordered by stock descending
	assert.Equal(t, "Dino Blocks", products[0].Name)
	assert.Equal(t, "Race Track", products[1].Name)
}

func TestSearchProducts_InactiveHidden(t *testing.T) {
	c, store := newTestCatalog(t)

	seedProduct(t, store, core.Record{
		"product_name": "Retired Toy", "price_usd": "5.00", "is_active": false,
	})
	seedProduct(t, store, core.Record{
		"product_name": "Current Toy", "price_usd": "5.00",
	})

	products, err := c.SearchProducts(context.Background(), catalog.ProductFilter{})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Current Toy", products[0].Name)
}

func TestSearchProducts_CategoryAndAgeGroupNarrow(t *testing.T) {
	c, store := newTestCatalog(t)

	seedProduct(t, store, core.Record{
		"product_name": "Toddler Blocks", "category": "Building", "age_group": "1-3",
		"price_usd": "12.00", "stock_qty": 4,
	})
	seedProduct(t, store, core.Record{
		"product_name": "Big Kid Blocks", "category": "Building", "age_group": "8-12",
		"price_usd": "22.00", "stock_qty": 4,
	})

	products, err := c.SearchProducts(context.Background(), catalog.ProductFilter{
		Category: "build",
		AgeGroup: "1-3",
	})

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Toddler Blocks", products[0].Name)
}

func TestSearchProducts_UnsetLimitUsesDefaultPage(t *testing.T) {
	// GIVEN: More active products than the default page size
	// WHEN: Searching with a zero-value filter
	// THEN: Five rows come back, not one

	c, store := newTestCatalog(t)

	for i := 0; i < 7; i++ {
		seedProduct(t, store, core.Record{
			"product_name": fmt.Sprintf("Toy %d", i), "price_usd": "5.00", "stock_qty": i,
		})
	}

	products, err := c.SearchProducts(context.Background(), catalog.ProductFilter{})

	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestProductDetails_DecodesMoneyExactly(t *testing.T) {
	c, store := newTestCatalog(t)

	id := seedProduct(t, store, core.Record{
		"product_name": "Dino Blocks", "price_usd": "24.99", "stock_qty": 5,
		"description": "Chunky blocks.",
	})

	product, err := c.ProductDetails(context.Background(), id)

	require.NoError(t, err)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("24.99")), "got %s", product.Price)
	assert.Equal(t, "Chunky blocks.", product.Description)
}

func TestProductDetails_MissingOrInactive(t *testing.T) {
	c, store := newTestCatalog(t)

	inactive := seedProduct(t, store, core.Record{
		"product_name": "Retired Toy", "price_usd": "5.00", "is_active": false,
	})

	for name, id := range map[string]int64{"missing": 4242, "inactive": inactive} {
		t.Run(name, func(t *testing.T) {
			_, err := c.ProductDetails(context.Background(), id)
			v, ok := core.AsViolation(err)
			require.True(t, ok)
			assert.Equal(t, core.KindNotFound, v.Kind)
			assert.Equal(t, "Toy not found or inactive.", v.Message)
		})
	}
}

// =============================================================================
// TICKETS AND PACKAGES
// =============================================================================

func TestTicketPricing_ResolvesLocations(t *testing.T) {
	c, store := newTestCatalog(t)
	ctx := context.Background()

	loc, err := store.Insert(ctx, "locations", core.Record{"name": "Funzone Downtown"})
	require.NoError(t, err)

	_, err = store.Insert(ctx, "ticket_types", core.Record{
		"name": "Open Play", "base_price_usd": "15.00",
		"location_id": loc["location_id"], "requires_grip_socks": true,
	})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "ticket_types", core.Record{
		"name": "All-Park Pass", "base_price_usd": "25.00",
	})
	require.NoError(t, err)

	prices, err := c.TicketPricing(ctx, "")
	require.NoError(t, err)
	require.Len(t, prices, 2)
	// Ordered by price ascending
	assert.Equal(t, "Open Play", prices[0].Name)
	assert.Equal(t, "Funzone Downtown", prices[0].LocationName)
	assert.True(t, prices[0].RequiresGripSocks)
	assert.Equal(t, "All Locations", prices[1].LocationName, "null location")

	t.Run("location filter", func(t *testing.T) {
		filtered, err := c.TicketPricing(ctx, "downtown")
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "Open Play", filtered[0].Name)
	})
}

func TestPartyPackages_IncludesInclusionList(t *testing.T) {
	c, store := newTestCatalog(t)
	ctx := context.Background()

	pkg, err := store.Insert(ctx, "party_packages", core.Record{
		"name": "Mega Bash", "price_usd": "299.00",
		"base_children": 10, "base_room_hours": 2.0,
		"includes_food": true, "includes_decor": true,
	})
	require.NoError(t, err)

	for _, item := range []core.Record{
		{"package_id": pkg["package_id"], "item_name": "Pizza", "quantity": 2},
		{"package_id": pkg["package_id"], "item_name": "Juice Box", "quantity": 12},
	} {
		_, err = store.Insert(ctx, "package_inclusions", item)
		require.NoError(t, err)
	}

	packages, err := c.PartyPackages(ctx, "")
	require.NoError(t, err)
	require.Len(t, packages, 1)

	got := packages[0]
	assert.Equal(t, 10, got.BaseChildren)
	assert.True(t, got.IncludesFood)
	assert.False(t, got.IncludesDrinks)
	require.Len(t, got.Inclusions, 2)
	assert.Equal(t, core.PackageInclusion{ItemName: "Pizza", Quantity: 2}, got.Inclusions[0])
}

// =============================================================================
// POLICIES AND LOCATIONS
// =============================================================================

func TestPolicies_TopicMatchesKeyOrValue(t *testing.T) {
	c, store := newTestCatalog(t)
	ctx := context.Background()

	for _, rec := range []core.Record{
		{"key": "grip_socks", "value": "Grip socks required on all play structures."},
		{"key": "refund_window", "value": "Refunds within 30 days with receipt."},
		{"key": "old_rule", "value": "Retired.", "is_active": false},
	} {
		_, err := store.Insert(ctx, "policies", rec)
		require.NoError(t, err)
	}

	t.Run("all active", func(t *testing.T) {
		policies, err := c.Policies(ctx, "")
		require.NoError(t, err)
		assert.Len(t, policies, 2, "inactive policies are hidden")
	})

	t.Run("topic match on value", func(t *testing.T) {
		policies, err := c.Policies(ctx, "receipt")
		require.NoError(t, err)
		require.Len(t, policies, 1)
		assert.Equal(t, "refund_window", policies[0].Key)
	})
}

func TestLocations_ActiveFilter(t *testing.T) {
	c, store := newTestCatalog(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, "locations", core.Record{"name": "Downtown", "city": "Springfield"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "locations", core.Record{"name": "Old Mall", "is_active": false})
	require.NoError(t, err)

	active, err := c.Locations(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Downtown", active[0].Name)

	all, err := c.Locations(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
