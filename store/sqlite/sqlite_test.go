package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funzone/venue-engine/core"
	"github.com/funzone/venue-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCustomer(t *testing.T, store *sqlite.Store) int64 {
	t.Helper()
	id, err := store.InsertCustomer(context.Background(), core.Customer{FullName: "Test Customer"})
	require.NoError(t, err)
	return id
}

func seedOrder(t *testing.T, store *sqlite.Store, customerID int64) int64 {
	t.Helper()
	id, err := store.InsertOrder(context.Background(), core.Order{
		CustomerID: customerID,
		OrderType:  core.OrderRetail,
		Status:     core.OrderPending,
		Subtotal:   decimal.RequireFromString("10.00"),
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
		Total:      decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)
	return id
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollbackOnError(t *testing.T) {
	// GIVEN: A transaction that inserts a customer and then fails
	// THEN: The insert is rolled back

	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	var insertedID int64
	err := store.WithTx(ctx, func(tx core.Store) error {
		id, err := tx.InsertCustomer(ctx, core.Customer{FullName: "Ghost"})
		if err != nil {
			return err
		}
		insertedID = id
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.GetCustomer(ctx, insertedID)
	require.NoError(t, err)
	assert.Nil(t, got, "rolled-back insert must not be visible")
}

func TestWithTx_CommitOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var id int64
	err := store.WithTx(ctx, func(tx core.Store) error {
		var err error
		id, err = tx.InsertCustomer(ctx, core.Customer{FullName: "Kept"})
		return err
	})
	require.NoError(t, err)

	got, err := store.GetCustomer(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Kept", got.FullName)
}

// =============================================================================
// SCHEMA INVARIANTS
// =============================================================================

func TestInsertOrderItem_OneSlotRuleEnforced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customerID := seedCustomer(t, store)
	orderID := seedOrder(t, store, customerID)

	one := int64(1)
	item := core.OrderItem{
		OrderID:   orderID,
		ItemType:  core.ItemProduct,
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("10.00"),
		LineTotal: decimal.RequireFromString("10.00"),
	}

	t.Run("no slot set", func(t *testing.T) {
		_, err := store.InsertOrderItem(ctx, item)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
	})

	t.Run("two slots set", func(t *testing.T) {
		bad := item
		bad.ProductID = &one
		bad.TicketTypeID = &one
		_, err := store.InsertOrderItem(ctx, bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrDataIntegrity)
		assert.ErrorContains(t, err, "one-slot rule")
	})
}

func TestInsertOrderItem_DanglingReference(t *testing.T) {
	// A valid slot pointing at a product that does not exist is a
	// foreign key failure, reported as such rather than as a slot-rule
	// violation.

	store := newTestStore(t)
	ctx := context.Background()

	customerID := seedCustomer(t, store)
	orderID := seedOrder(t, store, customerID)

	missing := int64(777)
	_, err := store.InsertOrderItem(ctx, core.OrderItem{
		OrderID:   orderID,
		ItemType:  core.ItemProduct,
		ProductID: &missing,
		Quantity:  1,
		UnitPrice: decimal.RequireFromString("10.00"),
		LineTotal: decimal.RequireFromString("10.00"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataIntegrity)
	assert.ErrorContains(t, err, "missing product, ticket type, or booking")
	assert.NotContains(t, err.Error(), "one-slot rule")
}

func TestTimestampsRoundTripUTC(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customerID := seedCustomer(t, store)
	_, err := store.Insert(ctx, "party_packages", core.Record{"name": "Bash", "price_usd": "99.00"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "resources", core.Record{"name": "Room"})
	require.NoError(t, err)

	// Offset-notated input lands as the same instant in UTC
	start := time.Date(2025, 11, 3, 7, 0, 0, 0, time.FixedZone("EST", -5*3600))
	id, err := store.InsertBooking(ctx, core.PartyBooking{
		PackageID: 1, ResourceID: 1, CustomerID: customerID,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(2 * time.Hour),
		Status:         core.PartyPending,
	})
	require.NoError(t, err)

	got, err := store.GetBooking(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.UTC, got.ScheduledStart.Location())
	assert.True(t, got.ScheduledStart.Equal(start))
}

// =============================================================================
// GENERIC QUERIES
// =============================================================================

func TestFetch_RejectsUnknownCollectionAndField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Fetch(ctx, core.Query{Collection: "secrets"})
	require.True(t, core.IsViolation(err))

	_, err = store.Fetch(ctx, core.Query{
		Collection: "products",
		Where: core.Where{
			All: []core.Filter{{Field: "password", Op: core.OpEq, Value: "x"}},
		},
	})
	require.True(t, core.IsViolation(err))
}

func TestFetch_InSetAndRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, rec := range []core.Record{
		{"product_name": "A", "price_usd": "5.00", "category": "Building"},
		{"product_name": "B", "price_usd": "15.00", "category": "Puzzles"},
		{"product_name": "C", "price_usd": "25.00", "category": "Outdoor"},
	} {
		_, err := store.Insert(ctx, "products", rec)
		require.NoError(t, err)
	}

	t.Run("set membership", func(t *testing.T) {
		rows, err := store.Fetch(ctx, core.Query{
			Collection: "products",
			Where: core.Where{
				All: []core.Filter{{
					Field: "category", Op: core.OpIn,
					Value: []any{"Building", "Outdoor"},
				}},
			},
			Order: []core.OrderBy{{Field: "product_name"}},
		})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "A", rows[0]["product_name"])
		assert.Equal(t, "C", rows[1]["product_name"])
	})

	t.Run("range", func(t *testing.T) {
		rows, err := store.Fetch(ctx, core.Query{
			Collection: "products",
			Where: core.Where{
				All: []core.Filter{{Field: "price_usd", Op: core.OpLt, Value: 20}},
			},
		})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})
}

func TestUpdateRecord_RequiresChanges(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), "products", "product_id", 1, core.Record{})

	v, ok := core.AsViolation(err)
	require.True(t, ok)
	assert.Equal(t, "No updates were provided.", v.Message)
}

func TestReset_ClearsEverything(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customerID := seedCustomer(t, store)
	seedOrder(t, store, customerID)

	require.NoError(t, store.Reset(ctx))

	got, err := store.GetCustomer(ctx, customerID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
