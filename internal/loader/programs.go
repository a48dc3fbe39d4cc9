package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"admissionsbot/internal/domain"
)

// Program CSV header columns.
const (
	ColSchool               = "School"
	ColProgramName          = "Program Name"
	ColDuration             = "Duration"
	ColTentativeInvestment  = "Tentative Investment (PKR)"
	ColQuarterlyInstallment = "Quarterly Installment (PKR)"
)

// programFields pairs each required column with its metadata key, in content order.
var programFields = []struct {
	column string
	key    string
}{
	{ColSchool, "school"},
	{ColProgramName, "program_name"},
	{ColDuration, "duration"},
	{ColTentativeInvestment, "tentative_investment"},
	{ColQuarterlyInstallment, "quarterly_installment"},
}

// LoadProgramsFile reads a program CSV from disk.
func LoadProgramsFile(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadPrograms(f, path)
}

// LoadPrograms turns every CSV row into a program summary document.
// Column order is free and extra columns are ignored.
func LoadPrograms(r io.Reader) ([]domain.Document, error) {
	return loadPrograms(r, "programs")
}

func loadPrograms(r io.Reader, source string) ([]domain.Document, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty program file", source)
		}
		return nil, fmt.Errorf("%s: read header: %w", source, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		// Excel exports often start with a BOM.
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, f := range programFields {
		if _, ok := index[f.column]; !ok {
			return nil, &DataError{Source: source, Record: -1, Field: f.column}
		}
	}

	var docs []domain.Document
	for rec := 0; ; rec++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", source, rec, err)
		}
		var content strings.Builder
		meta := make(map[string]string, len(programFields))
		for i, f := range programFields {
			col := index[f.column]
			var v string
			if col < len(row) {
				v = strings.TrimSpace(row[col])
			}
			if v == "" {
				return nil, &DataError{Source: source, Record: rec, Field: f.column}
			}
			if i > 0 {
				content.WriteString("\n")
			}
			content.WriteString(f.column + ": " + v)
			meta[f.key] = v
		}
		docs = append(docs, domain.Document{Content: content.String(), Metadata: meta})
	}
	return docs, nil
}
