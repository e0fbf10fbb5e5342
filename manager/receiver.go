package manager

import "github.com/csams/jack/task"

// receiver accumulates the results of one request. The set of
// implementations is closed: simpleReceiver and mapReceiver.
type receiver interface {
	// add records r and reports whether it was accepted.
	add(r *task.ServerResult) bool
	fulfilled() bool
	// assemble returns the request's values or the failure it carried.
	assemble() ([][]byte, error)
}

type simpleReceiver struct {
	result *task.ServerResult
}

func (s *simpleReceiver) add(r *task.ServerResult) bool {
	if s.result != nil {
		return false
	}
	s.result = r
	return true
}

func (s *simpleReceiver) fulfilled() bool { return s.result != nil }

func (s *simpleReceiver) assemble() ([][]byte, error) {
	if s.result.Exception != nil {
		return nil, s.result.Exception
	}
	if len(s.result.Value) == 0 {
		return [][]byte{}, nil
	}
	return s.result.Value[:1], nil
}

// mapReceiver holds one slot per chunk, indexed by seq id - 1.
type mapReceiver struct {
	results  []*task.ServerResult
	returned int
}

func newMapReceiver(n int) *mapReceiver {
	return &mapReceiver{results: make([]*task.ServerResult, n)}
}

func (m *mapReceiver) add(r *task.ServerResult) bool {
	i := r.SeqID - 1
	if i < 0 || i >= len(m.results) || m.results[i] != nil {
		return false
	}
	m.results[i] = r
	m.returned++
	return true
}

func (m *mapReceiver) fulfilled() bool { return m.returned == len(m.results) }

// assemble concatenates chunk values in seq id order. The first exception
// in that order wins, whatever order the chunks completed in.
func (m *mapReceiver) assemble() ([][]byte, error) {
	values := [][]byte{}
	for _, r := range m.results {
		if r.Exception != nil {
			return nil, r.Exception
		}
		values = append(values, r.Value...)
	}
	return values, nil
}
