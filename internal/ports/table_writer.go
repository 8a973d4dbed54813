package ports

// TableWriter is the boundary for persisting one run's tabular
// artifacts. Callers pass a bare table name ("selected_arcs") and
// pre-rendered cells; implementations own file naming and format.
type TableWriter interface {
	// WriteTable writes one named table, replacing any previous copy.
	// An empty row set is valid and yields a header-only table.
	WriteTable(name string, header []string, rows [][]string) error
}
