package step

type storeKey struct {
	name string
	path string
}

// Store records what named steps exposed during one run, keyed by step name
// and fan-out path ("" when not fanned out). A missing record means the step
// did not run.
type Store struct {
	records map[storeKey]map[string]any
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[storeKey]map[string]any)}
}

// Record marks name as ran at path with the given values.
func (s *Store) Record(name, path string, values map[string]any) {
	if values == nil {
		values = map[string]any{}
	}
	s.records[storeKey{name, path}] = values
}

// Lookup returns the values of name at path and whether it ran.
func (s *Store) Lookup(name, path string) (map[string]any, bool) {
	values, ok := s.records[storeKey{name, path}]
	return values, ok
}

// Ran reports whether name ran at path.
func (s *Store) Ran(name, path string) bool {
	_, ok := s.records[storeKey{name, path}]
	return ok
}
