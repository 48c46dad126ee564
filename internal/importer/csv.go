// Package importer reads transactions from CSV files into the store.
// The expected layout is: date,amount,description[,account_id]. Bank
// specific export formats are out of scope; exports should be massaged
// into this layout first.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"time"

	"github.com/subhound/subhound/internal/model"
	"github.com/subhound/subhound/internal/series"
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02"}

// ParseCSV reads transactions from r. The first row is skipped when it
// looks like a header. defaultAccount is used when the account column is
// absent or empty.
func ParseCSV(r io.Reader, defaultAccount string) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	start := 0
	if isHeader(records[0]) {
		start = 1
	}

	transactions := make([]model.Transaction, 0, len(records)-start)
	for i, record := range records[start:] {
		txn, parseErr := parseRecord(record, defaultAccount)
		if parseErr != nil {
			return nil, fmt.Errorf("row %d: %w", start+i+1, parseErr)
		}
		transactions = append(transactions, txn)
	}

	return transactions, nil
}

func parseRecord(record []string, defaultAccount string) (model.Transaction, error) {
	if len(record) < 3 {
		return model.Transaction{}, fmt.Errorf("expected at least 3 columns, got %d", len(record))
	}

	date, err := parseDate(strings.TrimSpace(record[0]))
	if err != nil {
		return model.Transaction{}, err
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount %q: %w", record[1], err)
	}

	description := strings.TrimSpace(record[2])
	if description == "" {
		return model.Transaction{}, fmt.Errorf("empty description")
	}

	accountID := defaultAccount
	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		accountID = strings.TrimSpace(record[3])
	}
	if accountID == "" {
		return model.Transaction{}, fmt.Errorf("no account for transaction %q", description)
	}

	txn := model.Transaction{
		Date:        date,
		Description: description,
		MerchantKey: series.NormalizeMerchant(description),
		AccountID:   accountID,
		Amount:      amount,
	}
	txn.Hash = txn.GenerateHash()
	txn.ID = txn.Hash[:16]

	return txn, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, raw); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseDate(strings.TrimSpace(record[0]))
	return err != nil
}
