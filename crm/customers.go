/*
Package crm manages customer profiles.

PURPOSE:
  One record per household, created during checkout. full_name is the
  only required field; the child birthdate, when collected, must be a
  valid YYYY-MM-DD date. Everything else is free-form contact detail.
*/
package crm

import (
	"context"
	"strings"

	"github.com/funzone/venue-engine/core"
)

// CRM exposes customer-profile operations over the record store.
type CRM struct {
	store core.Store
}

func NewCRM(store core.Store) *CRM {
	return &CRM{store: store}
}

// ProfileRequest carries caller input for a new customer profile.
type ProfileRequest struct {
	FullName       string
	Email          string
	Phone          string
	GuardianName   string
	ChildName      string
	ChildBirthdate string
	Notes          string
}

// CreateProfile validates and inserts a customer record, returning it
// with its assigned id.
func (c *CRM) CreateProfile(ctx context.Context, req ProfileRequest) (*core.Customer, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, core.Violationf(core.KindValidation, "full_name is required.")
	}

	birthdate := strings.TrimSpace(req.ChildBirthdate)
	if birthdate != "" {
		if _, err := core.ParseDateOnly(birthdate); err != nil {
			return nil, err
		}
	}

	id, err := c.store.InsertCustomer(ctx, core.Customer{
		FullName:       fullName,
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		GuardianName:   strings.TrimSpace(req.GuardianName),
		ChildName:      strings.TrimSpace(req.ChildName),
		ChildBirthdate: birthdate,
		Notes:          strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	return c.store.GetCustomer(ctx, id)
}

// Profile returns one customer record.
func (c *CRM) Profile(ctx context.Context, customerID int64) (*core.Customer, error) {
	customer, err := c.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, core.Violationf(core.KindNotFound, "Customer not found.")
	}
	return customer, nil
}
