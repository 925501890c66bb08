package dto

import "time"

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// EquipmentRequest is the payload accepted by create and update endpoints.
type EquipmentRequest struct {
	ID                  int64      `json:"id,omitempty"`
	Name                string     `json:"name"`
	SerialNumber        string     `json:"serial_number"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	Model               string     `json:"model,omitempty"`
	Category            string     `json:"category"`
	Location            string     `json:"location,omitempty"`
	Status              string     `json:"status,omitempty"`
	PurchaseDate        string     `json:"purchase_date,omitempty"`
	LastMaintenanceDate string     `json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate string     `json:"next_maintenance_date,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
}

// EquipmentResponse represents an equipment record as exposed via transport layers.
type EquipmentResponse struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	SerialNumber        string     `json:"serial_number"`
	Manufacturer        string     `json:"manufacturer,omitempty"`
	Model               string     `json:"model,omitempty"`
	Category            string     `json:"category"`
	Location            string     `json:"location,omitempty"`
	Status              string     `json:"status"`
	StatusLabel         string     `json:"status_label"`
	PurchaseDate        string     `json:"purchase_date,omitempty"`
	LastMaintenanceDate string     `json:"last_maintenance_date,omitempty"`
	NextMaintenanceDate string     `json:"next_maintenance_date,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// StatusResponse describes one selectable equipment status.
type StatusResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
