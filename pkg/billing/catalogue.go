package billing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Interval is a plan's billing interval
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// PlanKind distinguishes single-seat plans from team plans
type PlanKind string

const (
	PlanKindIndividual PlanKind = "individual"
	PlanKindTeam       PlanKind = "team"
)

// Default plan identifiers. They are also the provider price identifiers.
const (
	PlanIndividualMonthly = "individual-monthly"
	PlanIndividualYearly  = "individual-yearly"
	PlanTeamMonthly       = "monthly-2019"
	PlanTeamYearly        = "yearly-2019"
)

var (
	ErrUnknownPlan     = errors.New("unknown plan")
	ErrInvalidPricing  = errors.New("invalid pricing")
	ErrInvalidInterval = errors.New("invalid interval")
)

// Plan is a purchasable plan
type Plan struct {
	ID       string   `yaml:"id" json:"id"`
	Interval Interval `yaml:"interval" json:"interval"`
	Kind     PlanKind `yaml:"kind" json:"kind"`
}

// Pricing is a requested billing interval and seat quantity
type Pricing struct {
	Interval Interval `json:"interval"`
	Quantity int      `json:"quantity"`
}

// Catalogue indexes the plans the service can sell
type Catalogue struct {
	Plans []Plan `yaml:"plans"`

	byID map[string]Plan
}

// DefaultCatalogue returns the built-in plans
func DefaultCatalogue() *Catalogue {
	c := &Catalogue{Plans: []Plan{
		{ID: PlanIndividualMonthly, Interval: IntervalMonth, Kind: PlanKindIndividual},
		{ID: PlanIndividualYearly, Interval: IntervalYear, Kind: PlanKindIndividual},
		{ID: PlanTeamMonthly, Interval: IntervalMonth, Kind: PlanKindTeam},
		{ID: PlanTeamYearly, Interval: IntervalYear, Kind: PlanKindTeam},
	}}
	// The default plans are always valid.
	_ = c.index()
	return c
}

// LoadCatalogue reads a catalogue from a YAML file. An empty path returns DefaultCatalogue.
func LoadCatalogue(path string) (*Catalogue, error) {
	if path == "" {
		return DefaultCatalogue(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalogue: %w", err)
	}

	return ParseCatalogue(data)
}

// ParseCatalogue parses and validates a YAML catalogue
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalogue: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalogue) index() error {
	c.byID = make(map[string]Plan, len(c.Plans))
	for _, p := range c.Plans {
		if p.ID == "" {
			return fmt.Errorf("plan catalogue: plan id is required")
		}
		if p.Interval != IntervalMonth && p.Interval != IntervalYear {
			return fmt.Errorf("plan catalogue: plan %s: %w %q", p.ID, ErrInvalidInterval, p.Interval)
		}
		if p.Kind != PlanKindIndividual && p.Kind != PlanKindTeam {
			return fmt.Errorf("plan catalogue: plan %s: invalid kind %q", p.ID, p.Kind)
		}
		if _, dup := c.byID[p.ID]; dup {
			return fmt.Errorf("plan catalogue: duplicate plan %s", p.ID)
		}
		c.byID[p.ID] = p
	}

	for _, interval := range []Interval{IntervalMonth, IntervalYear} {
		for _, kind := range []PlanKind{PlanKindIndividual, PlanKindTeam} {
			if _, ok := c.find(interval, kind); !ok {
				return fmt.Errorf("plan catalogue: missing %s plan for interval %s", kind, interval)
			}
		}
	}
	return nil
}

func (c *Catalogue) find(interval Interval, kind PlanKind) (Plan, bool) {
	for _, p := range c.Plans {
		if p.Interval == interval && p.Kind == kind {
			return p, true
		}
	}
	return Plan{}, false
}

// Plan looks up a plan by id
func (c *Catalogue) Plan(id string) (Plan, error) {
	p, ok := c.byID[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPlan, id)
	}
	return p, nil
}

// Individual returns the individual plan billed at interval
func (c *Catalogue) Individual(interval Interval) (Plan, error) {
	p, ok := c.find(interval, PlanKindIndividual)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	return p, nil
}

// PlanFor selects the plan for a pricing: one seat buys the individual plan,
// more than one buys the team plan of the same interval.
func (c *Catalogue) PlanFor(pricing Pricing) (Plan, error) {
	if pricing.Quantity < 1 {
		return Plan{}, fmt.Errorf("%w: quantity must be at least 1, got %d", ErrInvalidPricing, pricing.Quantity)
	}

	kind := PlanKindTeam
	if pricing.Quantity == 1 {
		kind = PlanKindIndividual
	}

	p, ok := c.find(pricing.Interval, kind)
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrInvalidInterval, pricing.Interval)
	}
	return p, nil
}

// IsIndividual reports whether planID is a known single-seat plan
func (c *Catalogue) IsIndividual(planID string) bool {
	p, ok := c.byID[planID]
	return ok && p.Kind == PlanKindIndividual
}
