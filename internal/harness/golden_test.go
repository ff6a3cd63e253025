package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Testdata(t *testing.T) {
	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	for _, name := range []string{"top_up_and_send", "reserve_empty", "idempotent"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	result := NewResult("s1")
	result.AddTrace(TraceEvent{
		Seq:     1,
		Phase:   PhaseFlow,
		Action:  ActionSymbol,
		Args:    map[string]string{"name": "MFX"},
		Outcome: OutcomeOK,
		Result:  map[string]string{"id": "mfx-id"},
	})
	result.AddTrace(TraceEvent{Seq: 2, Phase: PhaseFlow, Action: ActionIdentity, Outcome: "RESERVED_ALIAS"})

	got, err := MarshalTrace("example", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"example","session":"s1","trace":[`+
			`{"action":"symbol","args":{"name":"MFX"},"outcome":"ok","phase":"flow","result":{"id":"mfx-id"},"seq":1},`+
			`{"action":"identity","outcome":"RESERVED_ALIAS","phase":"flow","seq":2}]}`,
		string(got))
}
