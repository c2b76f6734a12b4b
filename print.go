package composite

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/table"
)

// PrintRecords writes records to w as a table with one column per entry of
// cols. Without cols, the columns of the first record are used when it can
// list them.
func PrintRecords(w io.Writer, records []Record, cols ...string) {
	if len(cols) == 0 && len(records) > 0 {
		if lister, ok := records[0].(interface{ Columns() []string }); ok {
			cols = lister.Columns()
		}
	}

	tw := table.NewWriter()

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	tw.AppendHeader(header)

	for _, record := range records {
		row := make(table.Row, len(cols))
		for i, col := range cols {
			v := record.GetAttribute(col)
			if isNull(v) {
				row[i] = "NULL"
				continue
			}
			row[i] = fmt.Sprint(v)
		}
		tw.AppendRow(row)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d rows", len(records))})

	fmt.Fprintln(w, tw.Render())
}
