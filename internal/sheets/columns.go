package sheets

import (
	"fmt"
	"strings"

	"saldo/internal/ledger"
)

// headerAliases maps lower-cased header text to a ledger column. The
// Indonesian names are the headers of the original workbook.
var headerAliases = map[string]string{
	"date":         ledger.ColDate,
	"tanggal":      ledger.ColDate,
	"category":     ledger.ColCategory,
	"kategori":     ledger.ColCategory,
	"kind":         ledger.ColKind,
	"type":         ledger.ColKind,
	"jenis":        ledger.ColKind,
	"tipe":         ledger.ColKind,
	"amount":       ledger.ColAmount,
	"jumlah":       ledger.ColAmount,
	"nominal":      ledger.ColAmount,
	"nominal (rp)": ledger.ColAmount,
	"note":         ledger.ColNote,
	"notes":        ledger.ColNote,
	"keterangan":   ledger.ColNote,
	"catatan":      ledger.ColNote,
	"month":        ledger.ColMonth,
	"bulan":        ledger.ColMonth,
	"year":         ledger.ColYear,
	"tahun":        ledger.ColYear,
}

// Header is the header row written by stores, in ledger.Schema order.
var Header = []string{"Date", "Category", "Kind", "Amount", "Note", "Month", "Year"}

// ColumnIndex resolves a header row to column positions. Unknown headers
// are ignored; the first occurrence of a column wins.
func ColumnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		col, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := idx[col]; !dup {
			idx[col] = i
		}
	}
	return idx
}

// RowsFromValues converts a value matrix whose first row is the header into
// raw rows. Fully blank rows are skipped. A matrix without a date column
// yields an error, since nothing in it could be normalized.
func RowsFromValues(values [][]any) ([]ledger.RawRow, error) {
	if len(values) == 0 {
		return nil, nil
	}
	idx := ColumnIndex(toStrings(values[0]))
	if _, ok := idx[ledger.ColDate]; !ok {
		return nil, fmt.Errorf("unexpected header: missing date column; got headers=%v", toStrings(values[0]))
	}
	rows := make([]ledger.RawRow, 0, len(values)-1)
	for _, v := range values[1:] {
		if blank(v) {
			continue
		}
		row := make(ledger.RawRow, len(idx))
		for col, i := range idx {
			row[col] = safeGet(v, i)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ValuesFromLedger renders the header plus one value row per transaction.
func ValuesFromLedger(l ledger.Ledger) [][]any {
	values := make([][]any, 0, l.Len()+1)
	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	values = append(values, header)
	for _, r := range l.Rows() {
		row := make([]any, len(ledger.Schema))
		for i, col := range ledger.Schema {
			row[i] = r[col]
		}
		values = append(values, row)
	}
	return values
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []any, idx int) any {
	if idx < 0 || idx >= len(arr) {
		return nil
	}
	if s, ok := arr[idx].(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	return arr[idx]
}

func blank(row []any) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}
