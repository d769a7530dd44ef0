package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsCmd(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		want  []string
		avoid []string
	}{
		{
			name:  "initial",
			args:  []string{"events", "door"},
			want:  []string{`door at "closed" (running)`, "  OPEN"},
			avoid: []string{"LOCK"},
		},
		{
			name: "guard passes with context",
			args: []string{"events", "door", "--context", `{"has_key": true}`},
			want: []string{"  OPEN", "  LOCK"},
		},
		{
			name:  "after replay",
			args:  []string{"events", "door", "-e", "OPEN"},
			want:  []string{`door at "open" (running)`, "  CLOSE"},
			avoid: []string{"OPEN\n"},
		},
		{
			name: "finished instance",
			args: []string{"events", "door", "--context", `{"has_key": true}`, "-e", "LOCK"},
			want: []string{`door at "locked" (completed)`, "no events can fire"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, append([]string{"--dir", newWorkspace(t)}, tt.args...)...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, a := range tt.avoid {
				assert.NotContains(t, out, a)
			}
		})
	}
}

func TestEventsCmd_JSON(t *testing.T) {
	out, _, err := runCLI(t, "--dir", newWorkspace(t), "events", "door", "--json", "--context", `{"has_key": true}`)
	require.NoError(t, err)

	var report eventsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "door", report.Workflow)
	assert.Equal(t, "closed", report.State)
	assert.Equal(t, []string{"OPEN", "LOCK"}, report.Available)
}

func TestEventsCmd_JSONEmptyList(t *testing.T) {
	out, _, err := runCLI(t, "--dir", newWorkspace(t), "events", "boom", "-e", "FIRE", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"available": []`)
	assert.Contains(t, out, `"status": "error"`)
}
