package effect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deepcausality-go/deepcausality/internal/causerr"
)

func TestEffectValue_Truthy(t *testing.T) {
	cases := []struct {
		name      string
		value     EffectValue
		threshold float64
		want      bool
	}{
		{"deterministic true", Deterministic(true), 0.5, true},
		{"deterministic false", Deterministic(false), 0.5, false},
		{"probabilistic above threshold", Probabilistic(0.7), 0.5, true},
		{"probabilistic equal threshold", Probabilistic(0.5), 0.5, true},
		{"probabilistic below threshold", Probabilistic(0.3), 0.5, false},
		{"numeric nonzero", Numeric(3), 0, true},
		{"numeric zero", Numeric(0), 0, false},
		{"error is never truthy", ErrorOf(causerr.New(causerr.Unspecified, "")), 0, false},
		{"none is never truthy", NoneValue(), 0, false},
		{
			"map all truthy",
			MapOf(map[string]EffectValue{"a": Deterministic(true), "b": Numeric(1)}),
			0, true,
		},
		{
			"map one falsy fails all",
			MapOf(map[string]EffectValue{"a": Deterministic(true), "b": Numeric(0)}),
			0, false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.value.Truthy(tc.threshold))
		})
	}
}

func TestEffectValue_Accessors(t *testing.T) {
	v := Numeric(42)
	got, ok := v.AsNumeric()
	assert.True(t, ok)
	assert.Equal(t, 42.0, got)

	_, ok = v.AsDeterministic()
	assert.False(t, ok)
}

func TestProbabilistic_Clamps(t *testing.T) {
	p, _ := Probabilistic(1.5).AsProbabilistic()
	assert.Equal(t, 1.0, p)

	p, _ = Probabilistic(-0.5).AsProbabilistic()
	assert.Equal(t, 0.0, p)
}
