package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"pm-bot/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_StatusValues(t *testing.T) {
	for _, status := range []string{"todo", "in_progress", "done", "blocked"} {
		assert.True(t, models.ValidStatus(status), status)
	}

	for _, status := range []string{"", "pending", "DONE", "completed"} {
		assert.False(t, models.ValidStatus(status), status)
	}
}

func TestTask_PriorityRange(t *testing.T) {
	assert.False(t, models.ValidPriority(0))
	assert.True(t, models.ValidPriority(1))
	assert.True(t, models.ValidPriority(models.DefaultPriority))
	assert.True(t, models.ValidPriority(5))
	assert.False(t, models.ValidPriority(6))
}

func TestOptional_AbsentNullAndValue(t *testing.T) {
	var payload struct {
		Title       models.Optional[string] `json:"title"`
		Description models.Optional[string] `json:"description"`
		Priority    models.Optional[int]    `json:"priority"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"description": null, "priority": 2}`), &payload))

	assert.False(t, payload.Title.Set)
	assert.True(t, payload.Description.Set)
	assert.True(t, payload.Description.IsNull())
	require.True(t, payload.Priority.Set)
	require.NotNil(t, payload.Priority.Value)
	assert.Equal(t, 2, *payload.Priority.Value)
}

func TestOptional_RejectsWrongType(t *testing.T) {
	var payload struct {
		Priority models.Optional[int] `json:"priority"`
	}

	assert.Error(t, json.Unmarshal([]byte(`{"priority": "high"}`), &payload))
}

func TestParseTimestamp_NaiveIsUTC(t *testing.T) {
	ts, err := models.ParseTimestamp("2025-10-05T17:00:00")
	require.NoError(t, err)

	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, ts.Equal(time.Date(2025, 10, 5, 17, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_AwareKeepsInstant(t *testing.T) {
	ts, err := models.ParseTimestamp("2025-10-05T17:00:00-05:00")
	require.NoError(t, err)

	utc := ts.InUTC()
	assert.Equal(t, time.UTC, utc.Location())
	assert.True(t, utc.Equal(time.Date(2025, 10, 5, 22, 0, 0, 0, time.UTC)))
}

func TestParseTimestamp_Layouts(t *testing.T) {
	for _, input := range []string{
		"2025-10-05 17:00",
		"2025-10-05 17:00:00",
		"2025-10-05T17:00",
		"2025-10-05",
		"2025-10-05T17:00:00Z",
	} {
		_, err := models.ParseTimestamp(input)
		assert.NoError(t, err, input)
	}

	_, err := models.ParseTimestamp("next tuesday")
	assert.Error(t, err)
}

func TestTimestamp_JSON(t *testing.T) {
	var payload struct {
		DueAt *models.Timestamp `json:"due_at"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"due_at": "2025-10-05 17:00"}`), &payload))
	require.NotNil(t, payload.DueAt)
	assert.Equal(t, 17, payload.DueAt.Hour())

	assert.Error(t, json.Unmarshal([]byte(`{"due_at": 12}`), &payload))
}
