// Package catalog holds the set of named test scenarios and selects the
// next scenario to run based on an agent's recent performance.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"

	"github.com/ashita-ai/junshu/internal/model"
)

// ErrCatalogEmpty is returned when selection is attempted on a catalog
// with no scenarios. This is a configuration error: not retried.
var ErrCatalogEmpty = errors.New("catalog: no scenarios loaded")

// Selection policy constants. An agent whose trailing-5 mean score falls
// below strugglingScoreCutoff is restricted to the fundamentals pool
// (priority <= model.FundamentalsPriorityCutoff).
const (
	recentWindow          = 5
	strugglingScoreCutoff = 0.6
)

// Catalog is an immutable scenario set with a seeded selection source.
// Select is safe for concurrent use.
type Catalog struct {
	scenarios []model.TestScenario

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a catalog from the given scenarios. An empty slice loads
// the built-in default set, which covers every category at least once.
func New(scenarios []model.TestScenario, seed uint64) (*Catalog, error) {
	if len(scenarios) == 0 {
		scenarios = Defaults()
	}
	seen := make(map[string]bool, len(scenarios))
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("catalog: duplicate scenario id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return &Catalog{
		scenarios: scenarios,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// LoadFile reads a JSON scenario list from path and builds a catalog.
// An empty path loads the built-in defaults.
func LoadFile(path string, seed uint64) (*Catalog, error) {
	if path == "" {
		return New(nil, seed)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var scenarios []model.TestScenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return New(scenarios, seed)
}

// Scenarios returns the loaded scenario set.
func (c *Catalog) Scenarios() []model.TestScenario {
	return c.scenarios
}

// Len returns the number of loaded scenarios.
func (c *Catalog) Len() int {
	return len(c.scenarios)
}

// Select picks the next scenario for an agent given its recent cycle
// results. When the agent is struggling (trailing-5 mean score below
// 0.6) the candidate pool narrows to the fundamentals subset; otherwise
// the full catalog is in play. Within the pool, a scenario is drawn with
// weight 1/priority, so priority-1 scenarios are five times more likely
// than priority-5 ones. A misconfigured (empty) pool falls back to a
// uniform draw over the whole catalog.
func (c *Catalog) Select(history []model.CycleResult) (model.TestScenario, error) {
	if len(c.scenarios) == 0 {
		return model.TestScenario{}, ErrCatalogEmpty
	}

	pool := c.scenarios
	if mean, ok := recentMeanScore(history); ok && mean < strugglingScoreCutoff {
		pool = fundamentals(c.scenarios)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(pool) == 0 {
		return c.scenarios[c.rng.IntN(len(c.scenarios))], nil
	}
	return weightedPick(c.rng, pool), nil
}

// recentMeanScore computes the mean score over the trailing recentWindow
// results. The second return is false when fewer than recentWindow
// results exist, in which case no pool restriction applies.
func recentMeanScore(history []model.CycleResult) (float64, bool) {
	if len(history) < recentWindow {
		return 0, false
	}
	var sum float64
	for _, r := range history[len(history)-recentWindow:] {
		sum += r.Score
	}
	return sum / recentWindow, true
}

func fundamentals(scenarios []model.TestScenario) []model.TestScenario {
	var out []model.TestScenario
	for _, s := range scenarios {
		if s.Priority <= model.FundamentalsPriorityCutoff {
			out = append(out, s)
		}
	}
	return out
}

// weightedPick draws one scenario with probability proportional to
// 1/priority. Priorities are validated at load time, so the total weight
// is always positive for a non-empty pool.
func weightedPick(rng *rand.Rand, pool []model.TestScenario) model.TestScenario {
	var total float64
	for _, s := range pool {
		total += 1.0 / float64(s.Priority)
	}
	target := rng.Float64() * total
	for _, s := range pool {
		target -= 1.0 / float64(s.Priority)
		if target < 0 {
			return s
		}
	}
	return pool[len(pool)-1]
}
