/*
Package catalog serves the read-only storefront lookups.

PURPOSE:
  Products, admission ticket pricing, party packages, store policies,
  and locations. The catalog is owned externally - this package only
  reads, through the generic filtered-query surface of the record store.

FILTERING:
  Keyword search ORs across name, brand, and sku; category and age
  group narrow with case-insensitive substring matches. Location-name
  filters resolve the location join client-side so "All Locations"
  entries (null location) stay visible when no filter is given.

SEE ALSO:
  - core/store.go: The Querier contract this package consumes
*/
package catalog

import (
	"context"
	"strings"

	"github.com/funzone/venue-engine/core"
)

// Catalog exposes storefront reads over the record store.
type Catalog struct {
	store core.Querier
}

func NewCatalog(store core.Querier) *Catalog {
	return &Catalog{store: store}
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ProductFilter narrows the product search. Zero values mean no filter.
type ProductFilter struct {
	Keyword    string
	Category   string
	AgeGroup   string
	MaxResults int
}

// SearchProducts lists active products matching the filter, ordered by
// stock (desc) then price (asc).
func (c *Catalog) SearchProducts(ctx context.Context, f ProductFilter) ([]core.Product, error) {
	q := core.Query{
		Collection: "products",
		Where: core.Where{
			All: []core.Filter{{Field: "is_active", Op: core.OpEq, Value: true}},
		},
		Order: []core.OrderBy{
			{Field: "stock_qty", Desc: true},
			{Field: "price_usd"},
		},
		Limit: core.LimitOrDefault(f.MaxResults),
	}
	if f.Keyword != "" {
		q.Where.Any = []core.Filter{
			{Field: "product_name", Op: core.OpContains, Value: f.Keyword},
			{Field: "brand", Op: core.OpContains, Value: f.Keyword},
			{Field: "sku", Op: core.OpContains, Value: f.Keyword},
		}
	}
	if f.Category != "" {
		q.Where.All = append(q.Where.All,
			core.Filter{Field: "category", Op: core.OpContains, Value: f.Category})
	}
	if f.AgeGroup != "" {
		q.Where.All = append(q.Where.All,
			core.Filter{Field: "age_group", Op: core.OpContains, Value: f.AgeGroup})
	}

	records, err := c.store.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	products := make([]core.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, decodeProduct(rec))
	}
	return products, nil
}

// ProductDetails returns one active product. Missing or inactive
// products are reported the same way.
func (c *Catalog) ProductDetails(ctx context.Context, productID int64) (*core.Product, error) {
	rec, err := c.store.FetchByID(ctx, "products", "product_id", productID)
	if err != nil {
		return nil, err
	}
	if rec == nil || !recBool(rec, "is_active") {
		return nil, core.Violationf(core.KindNotFound, "Toy not found or inactive.")
	}
	product := decodeProduct(rec)
	return &product, nil
}

func decodeProduct(rec core.Record) core.Product {
	return core.Product{
		ID:          recInt64(rec, "product_id"),
		Name:        recString(rec, "product_name"),
		Brand:       recString(rec, "brand"),
		SKU:         recString(rec, "sku"),
		Category:    recString(rec, "category"),
		AgeGroup:    recString(rec, "age_group"),
		Material:    recString(rec, "material"),
		Color:       recString(rec, "color"),
		Country:     recString(rec, "country"),
		Description: recString(rec, "description"),
		Features:    recString(rec, "features"),
		Price:       recMoney(rec, "price_usd"),
		Stock:       recInt(rec, "stock_qty"),
		Rating:      recFloatPtr(rec, "rating"),
		Active:      recBool(rec, "is_active"),
	}
}

// =============================================================================
// TICKETS
// =============================================================================

// TicketPrice is a ticket type with its location name resolved.
type TicketPrice struct {
	core.TicketType
	LocationName string
}

// TicketPricing lists active ticket types ordered by price, optionally
// narrowed to locations whose name contains locationName.
func (c *Catalog) TicketPricing(ctx context.Context, locationName string) ([]TicketPrice, error) {
	records, err := c.store.Fetch(ctx, core.Query{
		Collection: "ticket_types",
		Where: core.Where{
			All: []core.Filter{{Field: "is_active", Op: core.OpEq, Value: true}},
		},
		Order: []core.OrderBy{{Field: "base_price_usd"}},
	})
	if err != nil {
		return nil, err
	}

	names, err := c.locationNames(ctx)
	if err != nil {
		return nil, err
	}

	var prices []TicketPrice
	for _, rec := range records {
		ticket := TicketPrice{
			TicketType: core.TicketType{
				ID:                recInt64(rec, "ticket_type_id"),
				Name:              recString(rec, "name"),
				BasePrice:         recMoney(rec, "base_price_usd"),
				LocationID:        recInt64Ptr(rec, "location_id"),
				RequiresWaiver:    recBool(rec, "requires_waiver"),
				RequiresGripSocks: recBool(rec, "requires_grip_socks"),
				Active:            true,
			},
			LocationName: resolveLocation(names, recInt64Ptr(rec, "location_id")),
		}
		if locationName != "" && !containsFold(ticket.LocationName, locationName) {
			continue
		}
		prices = append(prices, ticket)
	}
	return prices, nil
}

// =============================================================================
// PARTY PACKAGES
// =============================================================================

// PackageInfo is a party package with its location name and inclusion
// list resolved.
type PackageInfo struct {
	core.PartyPackage
	LocationName string
}

// PartyPackages lists active packages ordered by price with their
// inclusions, optionally narrowed by location name.
func (c *Catalog) PartyPackages(ctx context.Context, locationName string) ([]PackageInfo, error) {
	records, err := c.store.Fetch(ctx, core.Query{
		Collection: "party_packages",
		Where: core.Where{
			All: []core.Filter{{Field: "is_active", Op: core.OpEq, Value: true}},
		},
		Order: []core.OrderBy{{Field: "price_usd"}},
	})
	if err != nil {
		return nil, err
	}

	names, err := c.locationNames(ctx)
	if err != nil {
		return nil, err
	}

	var packages []PackageInfo
	for _, rec := range records {
		info := PackageInfo{
			PartyPackage: core.PartyPackage{
				ID:             recInt64(rec, "package_id"),
				Name:           recString(rec, "name"),
				Price:          recMoney(rec, "price_usd"),
				BaseChildren:   recInt(rec, "base_children"),
				BaseRoomHours:  recFloat(rec, "base_room_hours"),
				IncludesFood:   recBool(rec, "includes_food"),
				IncludesDrinks: recBool(rec, "includes_drinks"),
				IncludesDecor:  recBool(rec, "includes_decor"),
				LocationID:     recInt64Ptr(rec, "location_id"),
				Active:         true,
			},
			LocationName: resolveLocation(names, recInt64Ptr(rec, "location_id")),
		}
		if locationName != "" && !containsFold(info.LocationName, locationName) {
			continue
		}

		inclusions, err := c.store.Fetch(ctx, core.Query{
			Collection: "package_inclusions",
			Where: core.Where{
				All: []core.Filter{{Field: "package_id", Op: core.OpEq, Value: info.ID}},
			},
			Order: []core.OrderBy{{Field: "inclusion_id"}},
		})
		if err != nil {
			return nil, err
		}
		for _, inc := range inclusions {
			info.Inclusions = append(info.Inclusions, core.PackageInclusion{
				ItemName: recString(inc, "item_name"),
				Quantity: recInt(inc, "quantity"),
			})
		}
		packages = append(packages, info)
	}
	return packages, nil
}

// =============================================================================
// POLICIES AND LOCATIONS
// =============================================================================

// Policies lists active policy notes ordered by key, optionally matching
// a topic keyword against key or value.
func (c *Catalog) Policies(ctx context.Context, topic string) ([]core.Policy, error) {
	q := core.Query{
		Collection: "policies",
		Where: core.Where{
			All: []core.Filter{{Field: "is_active", Op: core.OpEq, Value: true}},
		},
		Order: []core.OrderBy{{Field: "key"}},
	}
	if topic != "" {
		q.Where.Any = []core.Filter{
			{Field: "key", Op: core.OpContains, Value: topic},
			{Field: "value", Op: core.OpContains, Value: topic},
		}
	}

	records, err := c.store.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	policies := make([]core.Policy, 0, len(records))
	for _, rec := range records {
		policies = append(policies, core.Policy{
			Key:    recString(rec, "key"),
			Value:  recString(rec, "value"),
			Active: true,
		})
	}
	return policies, nil
}

// Locations lists store locations ordered by name.
func (c *Catalog) Locations(ctx context.Context, onlyActive bool) ([]core.Location, error) {
	q := core.Query{
		Collection: "locations",
		Order:      []core.OrderBy{{Field: "name"}},
	}
	if onlyActive {
		q.Where.All = []core.Filter{{Field: "is_active", Op: core.OpEq, Value: true}}
	}

	records, err := c.store.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	locations := make([]core.Location, 0, len(records))
	for _, rec := range records {
		locations = append(locations, core.Location{
			ID:          recInt64(rec, "location_id"),
			Name:        recString(rec, "name"),
			AddressLine: recString(rec, "address_line"),
			City:        recString(rec, "city"),
			State:       recString(rec, "state"),
			PostalCode:  recString(rec, "postal_code"),
			Country:     recString(rec, "country"),
			Phone:       recString(rec, "phone"),
			Email:       recString(rec, "email"),
			Active:      recBool(rec, "is_active"),
		})
	}
	return locations, nil
}

func (c *Catalog) locationNames(ctx context.Context) (map[int64]string, error) {
	records, err := c.store.Fetch(ctx, core.Query{Collection: "locations"})
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(records))
	for _, rec := range records {
		names[recInt64(rec, "location_id")] = recString(rec, "name")
	}
	return names, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func resolveLocation(names map[int64]string, id *int64) string {
	if id == nil {
		return "All Locations"
	}
	if name, ok := names[*id]; ok {
		return name
	}
	return "All Locations"
}
