package contextgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

func TestNewTempoidFromString_ParsesISODate(t *testing.T) {
	c, err := NewTempoidFromString(1, "day", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, Tempoid, c.Kind)
	assert.Equal(t, "day", c.TimeScale)
	assert.Equal(t, 2024, c.Instant.Year())
	assert.Equal(t, 15, c.Instant.Day())
}

func TestNewTempoidFromString_RejectsUnparseableInput(t *testing.T) {
	_, err := NewTempoidFromString(1, "day", "not-a-date-or-number")
	require.Error(t, err)
	ce, ok := causerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, causerr.ConstructionError, ce.Code)
}
