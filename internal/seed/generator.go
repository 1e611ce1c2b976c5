// Package seed fills the Members table with synthetic rows.
package seed

import (
	"math"
	"math/rand"
	"time"
)

var (
	branches          = []string{"Toronto", "Montreal", "Vancouver", "Calgary", "Ottawa"}
	portfolioManagers = []string{"Alice", "Bob", "Charlie", "Diana", "Ethan"}
	names             = []string{"John Smith", "Jane Doe", "Emily Davis", "Michael Brown", "Laura Wilson", "Kevin Johnson"}
)

const (
	minMemberNumber = 100000
	maxMemberNumber = 999999
	minProfit       = -5000.0
	maxProfit       = 20000.0
	dateWindowDays  = 365
)

// Member is one row of the Members table. Number is not unique.
type Member struct {
	Number           int
	Name             string
	DateAdded        time.Time // midnight UTC
	PortfolioManager string
	Branch           string
	Profit           float64
}

// Generator produces random Members rows from fixed pools.
type Generator struct {
	rnd *rand.Rand
	now func() time.Time
}

// NewGenerator returns a generator whose sequence is fixed by seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source used for DateAdded.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Next returns the next row.
func (g *Generator) Next() Member {
	return Member{
		Number:           minMemberNumber + g.rnd.Intn(maxMemberNumber-minMemberNumber+1),
		Name:             pickOne(g.rnd, names),
		DateAdded:        g.pickDate(),
		PortfolioManager: pickOne(g.rnd, portfolioManagers),
		Branch:           pickOne(g.rnd, branches),
		Profit:           round2(minProfit + g.rnd.Float64()*(maxProfit-minProfit)),
	}
}

// pickDate returns a day in [now-365d, now].
func (g *Generator) pickDate() time.Time {
	start := g.now().AddDate(0, 0, -dateWindowDays)
	d := start.AddDate(0, 0, g.rnd.Intn(dateWindowDays+1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
