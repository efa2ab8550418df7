package failures

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/wpine215/a32nx/internal/ir"
)

func a320Bindings() []Binding {
	return []Binding{
		{Code: 24000, Type: TransformerRectifier(1)},
		{Code: 24001, Type: TransformerRectifier(2)},
		{Code: 24002, Type: TransformerRectifier(3)},
		{Code: 29000, Type: ReservoirLeak(Green)},
		{Code: 29001, Type: ReservoirLeak(Blue)},
		{Code: 29002, Type: ReservoirLeak(Yellow)},
	}
}

func TestTableLookup(t *testing.T) {
	table, err := NewTable(a320Bindings())
	require.NoError(t, err)

	ft, err := table.Lookup(29000)
	require.NoError(t, err)
	assert.Equal(t, ReservoirLeak(Green), ft)

	ft, err = table.Lookup(24002)
	require.NoError(t, err)
	assert.Equal(t, TransformerRectifier(3), ft)
	assert.Equal(t, 6, table.Len())
}

func TestTableLookupUnknown(t *testing.T) {
	table, err := NewTable(a320Bindings())
	require.NoError(t, err)

	_, err = table.Lookup(99999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFailureCode)

	var unknown *UnknownCodeError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &unknown))
	assert.Equal(t, 99999, unknown.Code)
}

func TestTableEmpty(t *testing.T) {
	table, err := NewTable(nil)
	require.NoError(t, err)

	_, err = table.Lookup(29000)
	assert.ErrorIs(t, err, ErrUnknownFailureCode)

	var nilTable *Table
	_, err = nilTable.Lookup(1)
	assert.ErrorIs(t, err, ErrUnknownFailureCode)
	assert.Zero(t, nilTable.Len())
}

func TestTableDuplicateCode(t *testing.T) {
	_, err := NewTable([]Binding{
		{Code: 29000, Type: ReservoirLeak(Green)},
		{Code: 29000, Type: ReservoirLeak(Blue)},
	})
	require.Error(t, err)
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeDuplicateFailureCode))
}

func TestTableZeroType(t *testing.T) {
	_, err := NewTable([]Binding{{Code: 1}})
	assert.True(t, ir.IsConfigError(err, ir.ErrCodeInvalidFailureType))
}

func TestTableSameTypeSeveralCodes(t *testing.T) {
	table, err := NewTable([]Binding{
		{Code: 1, Type: TransformerRectifier(1)},
		{Code: 2, Type: TransformerRectifier(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, table.Codes(TransformerRectifier(1)))
}

func TestTableBindingsIsCopy(t *testing.T) {
	table, err := NewTable(a320Bindings())
	require.NoError(t, err)

	b := table.Bindings()
	b[0].Code = 1

	ft, err := table.Lookup(24000)
	require.NoError(t, err)
	assert.Equal(t, TransformerRectifier(1), ft)
}

func TestTypeStringRoundTrip(t *testing.T) {
	for _, ft := range []Type{
		TransformerRectifier(2),
		ReservoirLeak(Green),
		ReservoirAirLeak(Blue),
		ReservoirReturnLeak(Yellow),
	} {
		parsed, err := ParseType(ft.String())
		require.NoError(t, err, ft.String())
		assert.Equal(t, ft, parsed)
	}
	assert.Equal(t, "ReservoirLeak(Green)", ReservoirLeak(Green).String())
	assert.Equal(t, "TransformerRectifier(1)", TransformerRectifier(1).String())
}

func TestParseTypeErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"ReservoirLeak",
		"ReservoirLeak(Purple)",
		"TransformerRectifier(0)",
		"TransformerRectifier(x)",
		"EngineFire(1)",
	} {
		_, err := ParseType(in)
		assert.Error(t, err, in)
	}
}

func TestBindingYAML(t *testing.T) {
	var bindings []Binding
	err := yaml.Unmarshal([]byte(`
- code: 29003
  type: ReservoirAirLeak(Green)
- code: 24000
  type: transformerrectifier(1)
`), &bindings)
	require.NoError(t, err)
	assert.Equal(t, []Binding{
		{Code: 29003, Type: ReservoirAirLeak(Green)},
		{Code: 24000, Type: TransformerRectifier(1)},
	}, bindings)
}

func TestSet(t *testing.T) {
	s := NewSet()
	assert.True(t, s.Activate(ReservoirLeak(Yellow)))
	assert.False(t, s.Activate(ReservoirLeak(Yellow)), "second activation is a no-op")
	assert.True(t, s.Activate(TransformerRectifier(2)))
	assert.True(t, s.Activate(ReservoirLeak(Green)))

	assert.True(t, s.IsActive(ReservoirLeak(Green)))
	assert.False(t, s.IsActive(ReservoirLeak(Blue)))
	assert.Equal(t, []Type{
		TransformerRectifier(2),
		ReservoirLeak(Green),
		ReservoirLeak(Yellow),
	}, s.Active())

	assert.True(t, s.Deactivate(ReservoirLeak(Green)))
	assert.False(t, s.Deactivate(ReservoirLeak(Green)))
	assert.Equal(t, 2, s.Len())

	var _ View = s
}
