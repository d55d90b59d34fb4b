package automation

import (
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	executionsSheet = "Executions"
	logsSheet       = "Logs"
	timeLayout      = "2006-01-02 15:04:05"
)

var (
	executionColumnsHeader = []string{"Execution ID", "Flow ID", "Lead ID", "User ID", "Status", "Current Action", "Started At", "Completed At", "Error"}
	logColumnsHeader       = []string{"Execution ID", "Timestamp", "Action", "Status", "Message", "Data"}
)

// ExportExecutionsXLSX renders executions and their logs as a two-sheet workbook
func ExportExecutionsXLSX(executions []AutomationExecution) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", executionsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(logsSheet); err != nil {
		return nil, err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	writeHeader(f, executionsSheet, executionColumnsHeader, headerStyle)
	writeHeader(f, logsSheet, logColumnsHeader, headerStyle)

	logRow := 2
	for i, execution := range executions {
		completedAt := ""
		if execution.CompletedAt != nil {
			completedAt = execution.CompletedAt.Format(timeLayout)
		}
		writeRow(f, executionsSheet, i+2, []interface{}{
			execution.ID,
			execution.FlowID,
			execution.LeadID,
			execution.UserID,
			string(execution.Status),
			execution.CurrentActionIndex,
			execution.StartedAt.Format(timeLayout),
			completedAt,
			execution.ErrorMessage,
		})

		for _, entry := range execution.Logs {
			writeRow(f, logsSheet, logRow, []interface{}{
				execution.ID,
				entry.Timestamp.Format(timeLayout),
				entry.Action,
				string(entry.Status),
				entry.Message,
				formatLogData(entry.Data),
			})
			logRow++
		}
	}

	for _, sheet := range []string{executionsSheet, logsSheet} {
		f.SetColWidth(sheet, "A", "I", 20)
	}
	f.SetActiveSheet(0)

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, columns []string, style int) {
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func formatLogData(data interface{}) string {
	if data == nil {
		return ""
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}
