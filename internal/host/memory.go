package host

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/wpine215/a32nx/internal/ir"
)

// Memory is an in-memory Host. Unset variables read as zero unless the host
// is strict. Safe for concurrent use so tests and host callbacks can inspect
// it while the simulation runs.
type Memory struct {
	Limits

	mu         sync.RWMutex
	values     map[ir.Variable]float64
	strict     bool
	readFault  map[ir.Variable]error
	writeFault map[ir.Variable]error
	reads      int
	writes     int
}

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) MemoryOption {
	return func(m *Memory) { m.Limits = l }
}

// Strict makes reads of never-set variables fail with ErrUnknownVariable.
func Strict() MemoryOption {
	return func(m *Memory) { m.strict = true }
}

// NewMemory creates an empty in-memory host.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		Limits:     DefaultLimits,
		values:     make(map[ir.Variable]float64),
		readFault:  make(map[ir.Variable]error),
		writeFault: make(map[ir.Variable]error),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read implements Variables.
func (m *Memory) Read(v ir.Variable) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if err := m.readFault[v]; err != nil {
		return 0, err
	}
	value, ok := m.values[v]
	if !ok && m.strict {
		return 0, fmt.Errorf("%w: %s", ErrUnknownVariable, v)
	}
	return value, nil
}

// Write implements Variables.
func (m *Memory) Write(v ir.Variable, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if err := m.writeFault[v]; err != nil {
		return err
	}
	m.values[v] = value
	return nil
}

// Set stores a value as the host would between ticks.
func (m *Memory) Set(v ir.Variable, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[v] = value
}

// Get returns the stored value and whether it was ever set.
func (m *Memory) Get(v ir.Variable) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[v]
	return value, ok
}

// FailReads makes every Read of v return err. A nil err clears the fault.
func (m *Memory) FailReads(v ir.Variable, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.readFault, v)
		return
	}
	m.readFault[v] = err
}

// FailWrites makes every Write of v return err. A nil err clears the fault.
func (m *Memory) FailWrites(v ir.Variable, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.writeFault, v)
		return
	}
	m.writeFault[v] = err
}

// Counts returns the number of Read and Write calls so far.
func (m *Memory) Counts() (reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads, m.writes
}

// Snapshot returns every stored variable sorted by its String form.
func (m *Memory) Snapshot() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Sample, 0, len(m.values))
	for v, value := range m.values {
		out = append(out, Sample{Variable: v, Value: value})
	}
	slices.SortFunc(out, func(a, b Sample) int {
		return cmp.Compare(a.Variable.String(), b.Variable.String())
	})
	return out
}

// Sample is a variable and its value at one point in time.
type Sample struct {
	Variable ir.Variable
	Value    float64
}
