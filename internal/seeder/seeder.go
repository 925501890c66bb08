package seeder

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/medequip/internal/entity"
	equipmentsvc "github.com/Additional-Code/medequip/internal/service/equipment"
	"github.com/Additional-Code/medequip/pkg/errorbank"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder loads sample equipment for local and dev setups.
type Seeder struct {
	registry *equipmentsvc.Service
	logger   *zap.Logger
}

// New constructs a Seeder that writes through the equipment registry.
func New(registry *equipmentsvc.Service, logger *zap.Logger) *Seeder {
	return &Seeder{registry: registry, logger: logger}
}

// Result counts what a seeding run did.
type Result struct {
	Created int
	Skipped int
}

// Equipment creates the sample records, skipping serial numbers already registered.
func (s *Seeder) Equipment(ctx context.Context) (Result, error) {
	var res Result
	for _, in := range samples(time.Now().UTC()) {
		_, err := s.registry.Create(ctx, in)
		switch {
		case err == nil:
			res.Created++
		case errorbank.IsKind(err, errorbank.KindConflict):
			res.Skipped++
		default:
			return res, err
		}
	}

	s.logger.Info("seeded equipment", zap.Int("created", res.Created), zap.Int("skipped", res.Skipped))
	return res, nil
}

func samples(now time.Time) []equipmentsvc.Input {
	date := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}
	return []equipmentsvc.Input{
		{
			Name:                "Infusion Pump",
			SerialNumber:        "IP-2024-0001",
			Manufacturer:        "Baxter",
			Model:               "Sigma Spectrum",
			Category:            "Therapeutic",
			Location:            "ICU Bay 2",
			Status:              entity.StatusActive,
			PurchaseDate:        date(-400),
			LastMaintenanceDate: date(-90),
			NextMaintenanceDate: date(10),
		},
		{
			Name:         "Patient Monitor",
			SerialNumber: "PM-2023-0042",
			Manufacturer: "Philips",
			Model:        "IntelliVue MX450",
			Category:     "Monitoring",
			Location:     "Ward 3",
			Status:       entity.StatusUnderRepair,
			PurchaseDate: date(-800),
			Notes:        "Display flickers intermittently",
		},
		{
			Name:                "Defibrillator",
			SerialNumber:        "DF-2022-0107",
			Manufacturer:        "ZOLL",
			Model:               "R Series",
			Category:            "Emergency",
			Location:            "Emergency Department",
			Status:              entity.StatusUnderMaintenance,
			LastMaintenanceDate: date(-200),
			NextMaintenanceDate: date(-5),
		},
		{
			Name:         "Ultrasound Scanner",
			SerialNumber: "US-2025-0003",
			Manufacturer: "GE Healthcare",
			Model:        "Vivid iq",
			Category:     "Imaging",
			Status:       entity.StatusPendingDelivery,
		},
	}
}
