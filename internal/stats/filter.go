// Package stats filters the patent table and computes per-group counts and shares.
package stats

import (
	"strings"

	"github.com/ppiankov/hevcstat/internal/model"
)

// unconstrained reports whether a selector value places no constraint
func unconstrained(v string) bool {
	return v == "" || v == model.All
}

// Filter returns the records matching every criterion of q, in table order.
// Profile, country and licensor match exactly. Inventor matches as a
// case-sensitive substring of the joined inventor column, so a pattern may
// span the delimiter between two names.
func Filter(table model.Table, q model.Query) model.Table {
	if unconstrained(q.Profile) && unconstrained(q.Country) &&
		unconstrained(q.Licensor) && unconstrained(q.Inventor) {
		return table
	}

	out := make(model.Table, 0, len(table))
	for _, rec := range table {
		if !unconstrained(q.Profile) && rec.Profile != q.Profile {
			continue
		}
		if !unconstrained(q.Country) && rec.Country != q.Country {
			continue
		}
		if !unconstrained(q.Licensor) && rec.Licensor != q.Licensor {
			continue
		}
		if !unconstrained(q.Inventor) && !strings.Contains(rec.InventorColumn(), q.Inventor) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
