// Package contextgraph implements the versioned context hypergraph from
// spec.md §3.1: a graph of Contextoid (Root/Datoid/Tempoid/Spaceoid/
// Spacetimeoid) values, adjusted by producing new versions rather than
// mutating in place, with an LRU-cached id resolution path for read-mostly
// access across many causaloid evaluations.
package contextgraph

import (
	"time"

	dps "github.com/markusmobius/go-dateparser"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

// ContextoidKind tags the variant held by a Contextoid.
type ContextoidKind int

const (
	// Root is the distinguished root contextoid of a Context.
	Root ContextoidKind = iota
	// Datoid carries an arbitrary data payload.
	Datoid
	// Tempoid carries a time-scale and an instant.
	Tempoid
	// Spaceoid carries spatial coordinates.
	Spaceoid
	// Spacetimeoid carries coordinates and an instant.
	Spacetimeoid
)

func (k ContextoidKind) String() string {
	switch k {
	case Root:
		return "Root"
	case Datoid:
		return "Datoid"
	case Tempoid:
		return "Tempoid"
	case Spaceoid:
		return "Spaceoid"
	case Spacetimeoid:
		return "Spacetimeoid"
	default:
		return "Unknown"
	}
}

// Contextoid is one node of a Context hypergraph.
type Contextoid struct {
	ID   uint64
	Kind ContextoidKind

	// Payload is the Datoid variant's arbitrary data.
	Payload interface{}

	// TimeScale and Instant are the Tempoid variant's fields.
	TimeScale string
	Instant   time.Time

	// Coordinates are the Spaceoid/Spacetimeoid variants' fields.
	Coordinates []float64
}

// NewRootContextoid constructs the Root variant for id.
func NewRootContextoid(id uint64) Contextoid {
	return Contextoid{ID: id, Kind: Root}
}

// NewDatoid constructs the Datoid variant.
func NewDatoid(id uint64, payload interface{}) Contextoid {
	return Contextoid{ID: id, Kind: Datoid, Payload: payload}
}

// NewTempoid constructs the Tempoid variant.
func NewTempoid(id uint64, timeScale string, instant time.Time) Contextoid {
	return Contextoid{ID: id, Kind: Tempoid, TimeScale: timeScale, Instant: instant}
}

// NewTempoidFromString constructs the Tempoid variant from a free-form
// timestamp string ("2024-01-01", "2h ago", "yesterday", ...), relative to
// the current period, rather than a pre-parsed time.Time. Most context
// data arrives as operator-typed or log-line timestamps, not as already
// structured time values.
func NewTempoidFromString(id uint64, timeScale, raw string) (Contextoid, error) {
	parser := dps.Parser{}
	cfg := &dps.Configuration{PreferredDateSource: dps.CurrentPeriod}

	parsed, err := parser.Parse(cfg, raw)
	if err != nil {
		return Contextoid{}, causerr.Newf(causerr.ConstructionError, "tempoid %d: %q is not a parseable timestamp: %v", id, raw, err).WithIDs(id)
	}
	if parsed.IsZero() {
		return Contextoid{}, causerr.Newf(causerr.ConstructionError, "tempoid %d: %q could not be parsed as a timestamp", id, raw).WithIDs(id)
	}

	return NewTempoid(id, timeScale, parsed.Time), nil
}

// NewSpaceoid constructs the Spaceoid variant.
func NewSpaceoid(id uint64, coordinates []float64) Contextoid {
	return Contextoid{ID: id, Kind: Spaceoid, Coordinates: coordinates}
}

// NewSpacetimeoid constructs the Spacetimeoid variant.
func NewSpacetimeoid(id uint64, coordinates []float64, instant time.Time) Contextoid {
	return Contextoid{ID: id, Kind: Spacetimeoid, Coordinates: coordinates, Instant: instant}
}
