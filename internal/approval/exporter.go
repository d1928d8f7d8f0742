package approval

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"
)

// ExportResult 导出结果
type ExportResult struct {
	Data        []byte `json:"data,omitempty"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	TotalCount  int    `json:"totalCount"`
}

// Exporter 选中条目 CSV 导出器
type Exporter struct {
	svc *Service
}

// NewExporter 创建导出器
func NewExporter(svc *Service) *Exporter {
	return &Exporter{svc: svc}
}

// 表头与列顺序是对外契约（运营可能写脚本解析），不要调整
var exportHeader = []string{"id", "type", "status", "createdAt"}

// Export 导出选中条目为 CSV
// 文件名形如 requests_export_2026-09-01.csv
func (e *Exporter) Export(ctx context.Context, tenantID string, itemType ItemType, ids []string) (*ExportResult, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("未知的条目类型: %s", itemType)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("未选中任何条目")
	}

	var rows [][]string

	switch itemType {
	case TypeRequests:
		requests, err := e.svc.FetchRequestsByIDs(ctx, tenantID, ids)
		if err != nil {
			return nil, err
		}
		for _, r := range requests {
			rows = append(rows, []string{
				r.ID,
				string(KindRequest),
				string(r.AdminStatus),
				r.CreatedAt.UTC().Format(time.RFC3339),
			})
		}

	case TypeOffers:
		offers, err := e.svc.FetchOffersByIDs(ctx, tenantID, ids)
		if err != nil {
			return nil, err
		}
		for _, o := range offers {
			rows = append(rows, []string{
				o.ID,
				string(KindOffer),
				string(o.AdminStatus),
				o.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeader); err != nil {
		return nil, fmt.Errorf("写入表头失败: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("写入数据行失败: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("刷新 CSV 缓冲失败: %w", err)
	}

	filename := fmt.Sprintf("%s_export_%s.csv", itemType, time.Now().UTC().Format("2006-01-02"))

	return &ExportResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/csv",
		TotalCount:  len(rows),
	}, nil
}
