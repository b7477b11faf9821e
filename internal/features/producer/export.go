package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{
	"created_at", "producer", "update_type", "ref_doctype",
	"producer_doc", "docname", "status", "mapping", "use_same_name", "error",
}

// ExportLogs renders the sync audit trail as an xlsx workbook.
func (s *ProducerServiceImpl) ExportLogs(ctx context.Context, producerURL string, limit int64) ([]byte, string, error) {
	if limit <= 0 {
		limit = 1000
	}
	logs, err := s.LogRepo.List(ctx, producerURL, limit)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sync Logs"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, log := range logs {
		values := []interface{}{
			log.CreatedAt.Format("2006-01-02 15:04:05"),
			log.Producer,
			string(log.UpdateType),
			log.RefDoctype,
			log.ProducerDoc,
			log.Docname,
			log.Status,
			log.Mapping,
			log.UseSameName,
			log.Error,
		}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("sync_logs_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}
