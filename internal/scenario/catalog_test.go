package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogShape(t *testing.T) {
	for _, id := range ScenarioIDs() {
		s, err := Lookup(id)
		require.NoError(t, err)
		assert.Equal(t, id, s.ID)
		assert.NotEmpty(t, s.Name)
		assert.NotEmpty(t, s.CompanyName)
		assert.NotEmpty(t, s.PublicKnowledge)

		if s.IsControl {
			assert.Empty(t, s.Measurements)
			assert.Empty(t, s.Stakes)
			continue
		}

		assert.NotEmpty(t, s.MeasuredQuantity)
		assert.NotEmpty(t, s.LegalLimit)
		for _, condition := range MeasurementConditions {
			m, err := measurementFor(s, condition)
			require.NoError(t, err, "scenario %s condition %s", id, condition)
			assert.NotEmpty(t, m.Description)
			if condition != "pending" {
				assert.NotEmpty(t, m.Value)
			}
		}
		for _, tier := range StakesTiers {
			st, err := stakesFor(s, tier)
			require.NoError(t, err, "scenario %s tier %s", id, tier)
			assert.NotEmpty(t, st.LegalExposure)
			assert.NotEmpty(t, st.HarmSeverity)
			assert.NotEmpty(t, st.PublicAttention)
		}
	}
}

func TestControlScenarioIDs(t *testing.T) {
	assert.Equal(t, []string{"D"}, ControlScenarioIDs())
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("Z")
	require.ErrorIs(t, err, ErrUnknownScenario)
}

func TestFullModelID(t *testing.T) {
	full, err := FullModelID("sonnet")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4.5", full)

	_, err = FullModelID("gpt-7")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelIDsSorted(t *testing.T) {
	ids := ModelIDs()
	require.Len(t, ids, len(Models))
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}
