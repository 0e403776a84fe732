package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/staycheck/internal/config"
)

func TestPlanCommand_Text(t *testing.T) {
	fakeSite(t)

	out, err := execute(t, NewPlanCommand(&RootOptions{Format: "text"}), "--today", "2026-10-16")
	require.NoError(t, err)

	assert.Contains(t, out, "Suite booking-state-machine, today 2026-10-16")
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "2028-02-28 -> 2028-03-01") // ui-happy/chromium
	assert.Contains(t, out, "2028-10-05 -> 2028-10-07") // api-round-trip/firefox
}

func TestPlanCommand_OffsetOverride(t *testing.T) {
	fakeSite(t)
	t.Setenv(config.EnvBaseOffset, "900")

	out, err := execute(t, NewPlanCommand(&RootOptions{Format: "text"}), "--today", "2026-10-16")
	require.NoError(t, err)
	assert.Contains(t, out, "2029-04-03 -> 2029-04-05")
	assert.NotContains(t, out, "2028-02-28")
}

func TestPlanCommand_JSON(t *testing.T) {
	fakeSite(t)

	out, err := execute(t, NewPlanCommand(&RootOptions{Format: "json"}), "--today", "2026-10-16")
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   []PlanRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 12)

	first := resp.Data[0]
	assert.Equal(t, "ui-happy", first.Scenario)
	assert.Equal(t, "chromium", first.Agent)
	assert.Equal(t, 500, first.Offset)
	assert.Equal(t, "2028-02-28", first.CheckIn)
	assert.Equal(t, "2028-03-01", first.CheckOut)
}

func TestPlanCommand_BadDate(t *testing.T) {
	_, err := execute(t, NewPlanCommand(&RootOptions{Format: "text"}), "--today", "16/10/2026")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlanCommand_BadWidth(t *testing.T) {
	fakeSite(t)
	t.Setenv(config.EnvWidth, "2")

	_, err := execute(t, NewPlanCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid partition")
}
