package shift

import (
	"github.com/carework/shift-engine/generic"
	"github.com/shopspring/decimal"
)

// Contract is the employment contract a shift is worked under.
type Contract struct {
	ID                  generic.ContractID
	EmployerID          generic.EmployerID
	EmployeeID          generic.EmployeeID
	EmployeeName        string
	WeeklyContractHours decimal.Decimal
	HourlyRate          decimal.Decimal
	Active              bool
}

// SameWorker reports whether two shifts are worked by the same person.
// Working-time limits are per employee, across contracts; shifts without
// an employee fall back to the contract.
func SameWorker(a, b Shift) bool {
	if a.EmployeeID != "" && b.EmployeeID != "" {
		return a.EmployeeID == b.EmployeeID
	}
	return a.ContractID == b.ContractID
}
