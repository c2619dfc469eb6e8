package run

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/jiaming2012/paper-trading/src/papertrade/models"
)

type orderCSVRow struct {
	OrderID     string  `csv:"order_id"`
	Contract    string  `csv:"contract"`
	Action      string  `csv:"action"`
	Quantity    float64 `csv:"quantity"`
	Type        string  `csv:"type"`
	Status      string  `csv:"status"`
	FillPrice   float64 `csv:"fill_price"`
	RealizedPnL string  `csv:"realized_pnl"`
	CreatedAt   string  `csv:"created_at"`
	Reasoning   string  `csv:"reasoning"`
}

func toCSVRow(order *models.Order) orderCSVRow {
	realized := ""
	if order.RealizedPnL != nil {
		realized = fmt.Sprintf("%.2f", *order.RealizedPnL)
	}

	return orderCSVRow{
		OrderID:     order.ID.String(),
		Contract:    order.Instrument.Key(),
		Action:      string(order.Action),
		Quantity:    order.Quantity,
		Type:        string(order.Type),
		Status:      string(order.Status),
		FillPrice:   order.FillPrice,
		RealizedPnL: realized,
		CreatedAt:   order.CreatedAt.Format(time.RFC3339),
		Reasoning:   order.Reasoning,
	}
}

// ExportOrdersToCsv writes the account's order history to a timestamped CSV
// file under outDir.
func ExportOrdersToCsv(outDir string, accountID string, orders []*models.Order) (string, error) {
	outFilePath := path.Join(outDir, fmt.Sprintf("orders_%s_%s.csv", accountID, time.Now().Format("2006-01-02_15-04-05")))

	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
			return "", fmt.Errorf("ExportOrdersToCsv: failed to create directory: %w", err)
		}
	}

	file, err := os.Create(outFilePath)
	if err != nil {
		return "", fmt.Errorf("ExportOrdersToCsv: failed to create file: %w", err)
	}
	defer file.Close()

	rows := make([]orderCSVRow, 0, len(orders))
	for _, order := range orders {
		rows = append(rows, toCSVRow(order))
	}

	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		writer := csv.NewWriter(out)
		return gocsv.NewSafeCSVWriter(writer)
	})

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("ExportOrdersToCsv: failed to write to file: %w", err)
	}

	return outFilePath, nil
}
