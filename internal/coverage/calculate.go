// Package coverage computes how many suppliers fall within a radius of each
// candidate office and ranks the offices by that count.
package coverage

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/coverage-cli/internal/geo"
	"github.com/sells-group/coverage-cli/internal/model"
)

// OfficeCoverage is the unranked coverage of a single office.
type OfficeCoverage struct {
	Office    model.Office
	Suppliers []model.Supplier
}

// Count returns the number of covered suppliers.
func (c OfficeCoverage) Count() int { return len(c.Suppliers) }

// Names returns the covered supplier names in membership order.
func (c OfficeCoverage) Names() []string {
	names := make([]string, len(c.Suppliers))
	for i, s := range c.Suppliers {
		names[i] = s.Name
	}
	return names
}

// Within returns the suppliers whose distance from center is at most
// radiusKM. The boundary is inclusive and input order is preserved. A radius
// of 0 matches only co-located suppliers.
func Within(center geo.Point, radiusKM float64, suppliers []model.Supplier) []model.Supplier {
	in := make([]model.Supplier, 0)
	for _, s := range suppliers {
		if geo.Distance(center, s.Location) <= radiusKM {
			in = append(in, s)
		}
	}
	return in
}

// Calculate returns one OfficeCoverage per office, in office input order.
func Calculate(offices []model.Office, suppliers []model.Supplier, radiusKM float64) []OfficeCoverage {
	out := make([]OfficeCoverage, len(offices))
	for i, o := range offices {
		out[i] = OfficeCoverage{Office: o, Suppliers: Within(o.Location, radiusKM, suppliers)}
	}
	return out
}

// CalculateConcurrent is Calculate fanned out across at most workers
// goroutines. The result is identical to Calculate. It fails only when ctx
// is cancelled.
func CalculateConcurrent(ctx context.Context, offices []model.Office, suppliers []model.Supplier, radiusKM float64, workers int) ([]OfficeCoverage, error) {
	if workers <= 1 || len(offices) <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "coverage: calculate")
		}
		return Calculate(offices, suppliers, radiusKM), nil
	}

	out := make([]OfficeCoverage, len(offices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, o := range offices {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = OfficeCoverage{Office: o, Suppliers: Within(o.Location, radiusKM, suppliers)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "coverage: calculate concurrent")
	}
	return out, nil
}
