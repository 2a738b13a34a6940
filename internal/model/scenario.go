package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScenarioKey identifies one scenario: an event type occurring in an event year.
type ScenarioKey struct {
	Type EventType
	Year int
}

// Name renders the key as "<Type>_Year<N>", e.g. "Positive_Year3".
func (k ScenarioKey) Name() string {
	return fmt.Sprintf("%s_Year%d", k.Type, k.Year)
}

func (k ScenarioKey) String() string {
	return k.Name()
}

// Less orders keys by event type (canonical order) then by event year.
func (k ScenarioKey) Less(other ScenarioKey) bool {
	if k.Type != other.Type {
		return k.Type < other.Type
	}
	return k.Year < other.Year
}

// ParseScenarioName is the inverse of ScenarioKey.Name.
func ParseScenarioName(name string) (ScenarioKey, error) {
	typ, year, ok := strings.Cut(name, "_Year")
	if !ok {
		return ScenarioKey{}, fmt.Errorf("malformed scenario name %q", name)
	}
	t, err := ParseEventType(typ)
	if err != nil {
		return ScenarioKey{}, fmt.Errorf("malformed scenario name %q: %w", name, err)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return ScenarioKey{}, fmt.Errorf("malformed scenario name %q: %w", name, err)
	}
	return ScenarioKey{Type: t, Year: y}, nil
}

// Scenario is the outcome of one simulated event.
type Scenario struct {
	NewPurchases []int       `json:"new_purchases"`
	Cumulative   []int       `json:"cumulative"`
	Key          ScenarioKey `json:"-"`
}

// Name returns the scenario identifier used in every output table.
func (s Scenario) Name() string {
	return s.Key.Name()
}

// TotalPurchases sums the new purchases over the horizon.
func (s Scenario) TotalPurchases() int {
	var total int
	for _, n := range s.NewPurchases {
		total += n
	}
	return total
}

// StatRow summarises cumulative ownership across all scenarios for one calendar year.
type StatRow struct {
	Year int     `json:"year"`
	Mean float64 `json:"mean"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Std  float64 `json:"std"`
}

// Coefficients are the share of undecided (neutral) buyers that purchase in
// their planned year, depending on what has happened before it.
type Coefficients struct {
	Baseline      float64 `json:"baseline" yaml:"baseline"`
	AfterPositive float64 `json:"after_positive" yaml:"after_positive"`
	AfterNegative float64 `json:"after_negative" yaml:"after_negative"`
}

// Run is one complete forecast: its inputs and every derived table.
type Run struct {
	CreatedAt    time.Time
	Inputs       *Inputs
	ID           string
	Label        string
	Scenarios    []Scenario
	Statistics   []StatRow
	Coefficients Coefficients
}

// RunSummary is a stored run's metadata without its tables.
type RunSummary struct {
	CreatedAt        time.Time
	ID               string
	Label            string
	Horizon          int
	InitialOwnership int
	ScenarioCount    int
}
