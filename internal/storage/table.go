package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Tabular is a finished table with a fixed column order.
type Tabular interface {
	Header() []string
	Len() int
	Cell(row int, column string) any
}

// WriteTable writes t to path as "csv" or "jsonl". The file is replaced
// atomically. An empty table still produces the CSV header row.
func WriteTable(path, format string, t Tabular, logger *slog.Logger) error {
	var write func(io.Writer, Tabular) error
	switch format {
	case "", "csv":
		write = writeCSV
	case "jsonl":
		write = writeJSONL
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := write(bw, t); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename output: %w", err)
	}

	logger.Info("table written", "path", path, "format", format, "rows", t.Len(), "columns", len(t.Header()))
	return nil
}

func writeCSV(w io.Writer, t Tabular) error {
	cw := csv.NewWriter(w)
	header := t.Header()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		for j, col := range header {
			record[j] = FormatCell(t.Cell(i, col))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func writeJSONL(w io.Writer, t Tabular) error {
	header := t.Header()
	keys := make([][]byte, len(header))
	for j, col := range header {
		k, err := json.Marshal(col)
		if err != nil {
			return fmt.Errorf("encode column name: %w", err)
		}
		keys[j] = k
	}

	// Objects are built by hand so keys keep the table's column order.
	var line bytes.Buffer
	for i := 0; i < t.Len(); i++ {
		line.Reset()
		line.WriteByte('{')
		for j, col := range header {
			if j > 0 {
				line.WriteByte(',')
			}
			v, err := json.Marshal(t.Cell(i, col))
			if err != nil {
				return fmt.Errorf("encode row %d column %q: %w", i, col, err)
			}
			line.Write(keys[j])
			line.WriteByte(':')
			line.Write(v)
		}
		line.WriteString("}\n")
		if _, err := w.Write(line.Bytes()); err != nil {
			return fmt.Errorf("write JSONL row: %w", err)
		}
	}
	return nil
}

// FormatCell renders a cell value for delimited output. Null is empty.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
