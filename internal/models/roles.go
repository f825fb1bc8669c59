package models

// User roles
const (
	RoleAdmin = "admin" // Unlimited credits, admin access
	RoleBeta  = "beta"  // Design partners, unlimited generations
	RoleUser  = "user"
)

// DemoUserEmail identifies the account attached to requests in demo mode.
const DemoUserEmail = "demo@ideaforge.local"

// Plan describes a subscription tier shown on the pricing page.
type Plan struct {
	ID             string
	Name           string
	MonthlyPrice   int // USD, 0 means "contact us"
	MonthlyCredits int
	Tagline        string
	Features       []string
	Highlighted    bool
}

const (
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Plans lists the subscription tiers in display order.
var Plans = []Plan{
	{
		ID:             PlanStarter,
		Name:           "Starter",
		MonthlyPrice:   0,
		MonthlyCredits: 50,
		Tagline:        "For individual researchers exploring a new field.",
		Features: []string{
			"Topic expansion and idea generation",
			"Literature analysis",
			"One pipeline board",
		},
	},
	{
		ID:             PlanPro,
		Name:           "Pro",
		MonthlyPrice:   29,
		MonthlyCredits: 1000,
		Tagline:        "For labs and R&D teams running several projects.",
		Features: []string{
			"Everything in Starter",
			"Document text extraction",
			"Experiment designs and red-team critique",
			"Strategy matrix",
		},
		Highlighted: true,
	},
	{
		ID:             PlanEnterprise,
		Name:           "Enterprise",
		MonthlyPrice:   0,
		MonthlyCredits: 0,
		Tagline:        "For organisations with compliance and scale needs.",
		Features: []string{
			"Everything in Pro",
			"Unlimited generations",
			"SSO and dedicated support",
		},
	},
}

// PlanByID returns the plan with the given id.
func PlanByID(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// GetInitialCreditsForRole returns the credits granted at signup
func GetInitialCreditsForRole(role string) int {
	switch role {
	case RoleAdmin, RoleBeta:
		return 0 // never deducted
	default:
		starter, _ := PlanByID(PlanStarter)
		return starter.MonthlyCredits
	}
}

// LowCreditThreshold is the balance below which clients show a top-up warning.
const LowCreditThreshold = 20

// IsLowBalance reports whether a user with role and balance should be warned.
// Unlimited roles never are.
func IsLowBalance(role string, credits int) bool {
	return !HasUnlimitedCredits(role) && credits < LowCreditThreshold
}

// HasUnlimitedCredits checks if a role should bypass credit deductions
func HasUnlimitedCredits(role string) bool {
	return role == RoleAdmin || role == RoleBeta
}
