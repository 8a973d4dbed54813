package csvrepo

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TableDir writes tables as CSV files inside a single directory,
// creating the directory on first use. A table named "flows" lands at
// <dir>/flows.csv.
type TableDir struct {
	Dir string
}

func NewTableDir(dir string) *TableDir {
	return &TableDir{Dir: dir}
}

func (t *TableDir) WriteTable(name string, header []string, rows [][]string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("write table: name must not be empty")
	}
	if err := os.MkdirAll(t.Dir, 0o755); err != nil {
		return fmt.Errorf("write table %q: create dir %q: %w", name, t.Dir, err)
	}

	path := filepath.Join(t.Dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write table %q: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write table %q: header: %w", name, err)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write table %q: row %d: %w", name, i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write table %q: flush: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write table %q: close: %w", name, err)
	}
	return nil
}
