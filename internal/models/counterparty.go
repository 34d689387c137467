package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ExternalCounterparty is the JSON form of a party outside the ledger.
const ExternalCounterparty = "external"

// Counterparty is either a user inside the system or the outside world.
// The zero value is External.
type Counterparty struct {
	userID   uuid.UUID
	internal bool
}

// Internal names a ledger user.
func Internal(userID uuid.UUID) Counterparty {
	return Counterparty{userID: userID, internal: true}
}

// External names the world outside the ledger (cash in, cash out).
func External() Counterparty {
	return Counterparty{}
}

func (c Counterparty) IsExternal() bool {
	return !c.internal
}

// UserID returns the user id and true for internal counterparties.
func (c Counterparty) UserID() (uuid.UUID, bool) {
	return c.userID, c.internal
}

// Is reports whether c is the internal counterparty for userID.
func (c Counterparty) Is(userID uuid.UUID) bool {
	return c.internal && c.userID == userID
}

func (c Counterparty) String() string {
	if !c.internal {
		return ExternalCounterparty
	}
	return c.userID.String()
}

// Value stores External as NULL.
func (c Counterparty) Value() (driver.Value, error) {
	if !c.internal {
		return nil, nil
	}
	return c.userID.String(), nil
}

// Scan reads NULL as External.
func (c *Counterparty) Scan(value interface{}) error {
	if value == nil {
		*c = External()
		return nil
	}
	var id uuid.UUID
	if err := id.Scan(value); err != nil {
		return fmt.Errorf("scan counterparty: %w", err)
	}
	*c = Internal(id)
	return nil
}

func (c Counterparty) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Counterparty) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == ExternalCounterparty {
		*c = External()
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return fmt.Errorf("parse counterparty: %w", err)
	}
	*c = Internal(id)
	return nil
}
