package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Status classifies a piece of equipment. Any value may replace any other.
type Status string

const (
	StatusActive           Status = "Active"
	StatusUnderRepair      Status = "UnderRepair"
	StatusDecommissioned   Status = "Decommissioned"
	StatusUnderMaintenance Status = "UnderMaintenance"
	StatusPendingDelivery  Status = "PendingDelivery"
)

var statusLabels = map[Status]string{
	StatusActive:           "Active",
	StatusUnderRepair:      "Under repair",
	StatusDecommissioned:   "Decommissioned",
	StatusUnderMaintenance: "Under maintenance",
	StatusPendingDelivery:  "Pending delivery",
}

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{
		StatusActive,
		StatusUnderRepair,
		StatusDecommissioned,
		StatusUnderMaintenance,
		StatusPendingDelivery,
	}
}

// Valid reports whether s belongs to the closed status set.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human readable name of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Equipment is a medical equipment record stored in the relational database.
type Equipment struct {
	bun.BaseModel `bun:"table:medical_equipment"`

	ID                  int64      `bun:",pk,autoincrement" json:"id"`
	Name                string     `bun:"name,type:varchar(200),notnull" json:"name"`
	SerialNumber        string     `bun:"serial_number,type:varchar(100),notnull,unique" json:"serial_number"`
	Manufacturer        string     `bun:"manufacturer,type:varchar(150),nullzero" json:"manufacturer,omitempty"`
	Model               string     `bun:"model,type:varchar(100),nullzero" json:"model,omitempty"`
	Category            string     `bun:"category,type:varchar(100),notnull" json:"category"`
	Location            string     `bun:"location,type:varchar(200),nullzero" json:"location,omitempty"`
	Status              Status     `bun:"status,type:varchar(32),notnull" json:"status"`
	PurchaseDate        *time.Time `bun:"purchase_date,type:date" json:"purchase_date,omitempty"`
	LastMaintenanceDate *time.Time `bun:"last_maintenance_date,type:date" json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate *time.Time `bun:"next_maintenance_date,type:date" json:"next_maintenance_date,omitempty"`
	Notes               string     `bun:"notes,type:varchar(1000),nullzero" json:"notes,omitempty"`
	CreatedAt           time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           *time.Time `bun:"updated_at" json:"updated_at,omitempty"`
}

// MaintenanceDue reports whether the next maintenance falls on or before the given day.
func (e *Equipment) MaintenanceDue(on time.Time) bool {
	if e == nil || e.NextMaintenanceDate == nil {
		return false
	}
	return !e.NextMaintenanceDate.After(on)
}
