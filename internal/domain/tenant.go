package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TenantIsolationError names the first record found outside the declared tenant.
type TenantIsolationError struct {
	Tenant      string
	Kind        EntityKind
	RecordID    string
	RecordOwner string
}

func (e *TenantIsolationError) Error() string {
	return fmt.Sprintf("%s: %s %s belongs to tenant %q, not %q",
		ErrTenantIsolation, e.Kind, e.RecordID, e.RecordOwner, e.Tenant)
}

func (e *TenantIsolationError) Unwrap() error {
	return ErrTenantIsolation
}

// RequireTenant rejects any record whose tenant differs from tenantID.
func RequireTenant(tenantID string, records ...Entity) error {
	for _, r := range records {
		if r == nil {
			continue
		}
		if owner := r.EntityTenant(); owner != tenantID {
			return &TenantIsolationError{
				Tenant:      tenantID,
				Kind:        r.EntityKind(),
				RecordID:    r.EntityID(),
				RecordOwner: owner,
			}
		}
	}
	return nil
}

// EntriesInTenant applies RequireTenant to a slice of entries.
func EntriesInTenant(tenantID string, entries []*LedgerEntry) error {
	for _, e := range entries {
		if err := RequireTenant(tenantID, e); err != nil {
			return err
		}
	}
	return nil
}

// TransactionsInTenant applies RequireTenant to a slice of transactions.
func TransactionsInTenant(tenantID string, txns []*Transaction) error {
	for _, t := range txns {
		if err := RequireTenant(tenantID, t); err != nil {
			return err
		}
	}
	return nil
}

// MembersInTenant applies RequireTenant to a slice of members.
func MembersInTenant(tenantID string, members []*Member) error {
	for _, m := range members {
		if err := RequireTenant(tenantID, m); err != nil {
			return err
		}
	}
	return nil
}

// FundsInTenant applies RequireTenant to a slice of funds.
func FundsInTenant(tenantID string, funds []*Fund) error {
	for _, f := range funds {
		if err := RequireTenant(tenantID, f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateForeignKeyWithinTenant checks that a referenced record lives in the
// same tenant as the record pointing at it.
func ValidateForeignKeyWithinTenant(entity, related Entity) error {
	return RequireTenant(entity.EntityTenant(), related)
}

// ValidateTenantID checks that id is a UUID.
func ValidateTenantID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTenantID, id)
	}
	return nil
}

// TenantSchemaName is the per-tenant schema name, tenant_<uuid with underscores>.
func TenantSchemaName(tenantID string) (string, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return "", err
	}
	return "tenant_" + strings.ReplaceAll(strings.ToLower(tenantID), "-", "_"), nil
}

// ValidateSchemaIsolation checks that schema is the schema owned by tenantID.
func ValidateSchemaIsolation(tenantID, schema string) error {
	want, err := TenantSchemaName(tenantID)
	if err != nil {
		return err
	}
	if schema != want {
		return fmt.Errorf("%w: schema %q does not belong to tenant %q", ErrTenantIsolation, schema, tenantID)
	}
	return nil
}
