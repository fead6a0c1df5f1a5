package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

const CustomPackage = "custom"

var ErrUnknownPackage = errors.New("unknown sponsorship package")

type Package struct {
	Code           string
	Name           string
	Amount         decimal.Decimal
	OriginalAmount decimal.Decimal
	Description    string
	Benefits       []string
}

var packages = []Package{
	{
		Code:           "basic",
		Name:           "Basic Sponsor",
		Amount:         decimal.NewFromInt(99),
		OriginalAmount: decimal.NewFromInt(149),
		Description:    "Support the project once",
		Benefits:       []string{"Name on the sponsor wall"},
	},
	{
		Code:           "advanced",
		Name:           "Advanced Sponsor",
		Amount:         decimal.NewFromInt(299),
		OriginalAmount: decimal.NewFromInt(399),
		Description:    "Early access and a thank-you note",
		Benefits:       []string{"Name on the sponsor wall", "Early access builds"},
	},
	{
		Code:           "vip",
		Name:           "VIP Sponsor",
		Amount:         decimal.NewFromInt(599),
		OriginalAmount: decimal.NewFromInt(799),
		Description:    "Priority support for a year",
		Benefits:       []string{"Name on the sponsor wall", "Early access builds", "Priority support"},
	},
	{
		Code:           "supreme",
		Name:           "Supreme Sponsor",
		Amount:         decimal.NewFromInt(999),
		OriginalAmount: decimal.NewFromInt(1299),
		Description:    "Everything, plus a say in the roadmap",
		Benefits:       []string{"Name on the sponsor wall", "Early access builds", "Priority support", "Roadmap votes"},
	},
}

// Packages returns the fixed price sponsorship tiers. Custom is not listed.
func Packages() []Package {
	out := make([]Package, len(packages))
	copy(out, packages)
	return out
}

func PackageByCode(code string) (Package, error) {
	for _, p := range packages {
		if p.Code == code {
			return p, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

// ResolveAmount returns the amount charged for a package. Custom packages
// use the caller supplied amount.
func ResolveAmount(code string, custom decimal.Decimal) (decimal.Decimal, error) {
	if code == CustomPackage {
		if !custom.IsPositive() {
			return decimal.Zero, ErrUnknownPackage
		}
		return custom.Round(MoneyPlaces), nil
	}
	p, err := PackageByCode(code)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Amount, nil
}
