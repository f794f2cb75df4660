// Package incentive maps canonical product identifiers to reimbursement
// programs and computes the incentive amount each order earns.
package incentive

import (
	"order-settlement-service/internal/models"
	"order-settlement-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Program pairs a reimbursement program with its rate against the order
// subtotal.
type Program struct {
	Name string
	Rate decimal.Decimal
}

// UnmappedProgram is the sentinel for canonical SKUs outside the program
// table. Rate zero: an unmapped product never contributes incentive revenue,
// but it must stay observable rather than silently absorbed.
var UnmappedProgram = Program{Name: "UNMAPPED", Rate: decimal.Zero}

// programTable is the fixed SKU-to-program lookup. Keys are canonical SKUs;
// the entries without the SKU- prefix cover product codes that were already
// in circulation before the prefix convention.
var programTable = map[string]Program{
	"SKU-LED-001":    {Name: "ENERGY_EFF_LIGHTING", Rate: decimal.NewFromFloat(0.15)},
	"SKU-THERM-002":  {Name: "SMART_THERMOSTAT", Rate: decimal.NewFromFloat(0.20)},
	"SKU-SMART-003":  {Name: "SMART_HOME_PROG", Rate: decimal.NewFromFloat(0.18)},
	"SKU-AUDIT-004":  {Name: "HOME_ENERGY_AUDIT", Rate: decimal.NewFromFloat(0.25)},
	"SKU-HVAC-005":   {Name: "HVAC_UPGRADE", Rate: decimal.NewFromFloat(0.22)},
	"HVAC-005":       {Name: "HVAC_UPGRADE", Rate: decimal.NewFromFloat(0.22)},
	"SKU-REBATE-006": {Name: "DIRECT_REBATE", Rate: decimal.NewFromFloat(0.30)},
	"THERM002":       {Name: "SMART_THERMOSTAT", Rate: decimal.NewFromFloat(0.20)},
}

// Resolve maps a canonical SKU to its program. Unmapped SKUs resolve to the
// UNMAPPED sentinel, never an error.
func Resolve(canonicalSKU string) Program {
	if program, ok := programTable[canonicalSKU]; ok {
		return program
	}
	return UnmappedProgram
}

// Amount computes the incentive for a subtotal at the given rate, rounded to
// currency precision.
func Amount(subtotal decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(2)
}

// Stats reports what resolution observed across a batch.
type Stats struct {
	Orders       int            `json:"orders"`
	Unmapped     int            `json:"unmapped"`
	UnmappedSKUs []string       `json:"unmapped_skus,omitempty"`
	ByProgram    map[string]int `json:"by_program"`
}

// Resolver applies program resolution to cleaned orders.
type Resolver struct {
	log logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		log: logger.GetGlobalLogger().WithComponent("incentive"),
	}
}

// Apply resolves the program, rate and incentive amount for every cleaned
// order and reports unmapped SKUs both as Issues and as an auditable list.
// Two raw SKUs that canonicalized identically resolve to the same program by
// construction of the lookup.
func (r *Resolver) Apply(orders []*models.CleanOrder) ([]models.Issue, *Stats) {
	stats := &Stats{
		Orders:    len(orders),
		ByProgram: make(map[string]int),
	}
	var issues []models.Issue
	seenUnmapped := make(map[string]struct{})

	for _, order := range orders {
		program := Resolve(order.SKU)
		order.IncentiveProgram = program.Name
		order.IncentiveRate = program.Rate
		order.IncentiveAmount = Amount(order.Subtotal, program.Rate)

		stats.ByProgram[program.Name]++
		if program.Name == UnmappedProgram.Name {
			stats.Unmapped++
			if _, ok := seenUnmapped[order.SKU]; !ok {
				seenUnmapped[order.SKU] = struct{}{}
				stats.UnmappedSKUs = append(stats.UnmappedSKUs, order.SKU)
			}
			issues = append(issues, models.Issue{
				Type:           models.IssueUnmappedProduct,
				OrderID:        order.OrderID,
				Detail:         "SKU '" + order.SKU + "' has no incentive program mapping",
				ActionRequired: "Add the SKU to the incentive program table or correct the product code",
			})
		}
	}

	if stats.Unmapped > 0 {
		r.log.WithFields(logger.Fields{
			"unmapped_orders": stats.Unmapped,
			"unmapped_skus":   stats.UnmappedSKUs,
		}).Warn("Orders with unmapped SKUs excluded from incentive revenue")
	}

	return issues, stats
}
