// Package exporter renders screener results and portfolio valuations as
// downloadable tables.
//
// A Table is built from a domain result (ScreenerTable, ValuationTable) and
// written in one of the supported formats:
//
//	table := exporter.ScreenerTable(result)
//	err := exporter.Write(w, exporter.FormatXLSX, table)
//
// CSV output can carry a UTF-8 BOM so Excel detects the encoding. XLSX output
// is produced with excelize and keeps numeric cells numeric.
package exporter
