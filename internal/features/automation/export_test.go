package automation

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportExecutionsXLSX(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	completed := started.Add(2 * time.Second)

	executions := []AutomationExecution{
		{
			ID:                 "exec-1",
			FlowID:             "flow-1",
			LeadID:             "lead-1",
			UserID:             "user-1",
			Status:             ExecutionFailed,
			CurrentActionIndex: 1,
			StartedAt:          started,
			CompletedAt:        &completed,
			ErrorMessage:       "boom",
			Logs: []AutomationLog{
				{Timestamp: started, Action: "email:a1", Status: LogSuccess, Message: "Email sent to jane@example.com", Data: map[string]interface{}{"to": "jane@example.com"}},
				{Timestamp: completed, Action: "sms:a2", Status: LogError, Message: "boom"},
			},
		},
		{
			ID:        "exec-2",
			FlowID:    "flow-1",
			Status:    ExecutionRunning,
			StartedAt: started,
		},
	}

	data, err := ExportExecutionsXLSX(executions)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{executionsSheet, logsSheet}, f.GetSheetList())

	rows, err := f.GetRows(executionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, executionColumnsHeader, rows[0])
	assert.Equal(t, []string{"exec-1", "flow-1", "lead-1", "user-1", "failed", "1", "2026-03-01 09:30:00", "2026-03-01 09:30:02", "boom"}, rows[1])
	assert.Equal(t, "exec-2", rows[2][0])
	assert.Equal(t, "running", rows[2][4])

	logRows, err := f.GetRows(logsSheet)
	require.NoError(t, err)
	require.Len(t, logRows, 3)
	assert.Equal(t, logColumnsHeader, logRows[0])
	assert.Equal(t, []string{"exec-1", "2026-03-01 09:30:00", "email:a1", "success", "Email sent to jane@example.com", `{"to":"jane@example.com"}`}, logRows[1])
	assert.Equal(t, []string{"exec-1", "2026-03-01 09:30:02", "sms:a2", "error", "boom"}, logRows[2])
}

func TestExportExecutionsXLSX_Empty(t *testing.T) {
	data, err := ExportExecutionsXLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(executionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
