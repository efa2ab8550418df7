package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func ptr(f float64) *float64 { return &f }

func TestTransformSpec_Build(t *testing.T) {
	tests := []struct {
		spec TransformSpec
		name string
		in   []float64
		want []float64
	}{
		{TransformSpec{Kind: "identity"}, "identity", []float64{-1, 0, 2}, []float64{-1, 0, 2}},
		{TransformSpec{Kind: "positive"}, "positive", []float64{-1, 0, 2}, []float64{0, 0, 2}},
		{TransformSpec{Kind: "step"}, "step(0)", []float64{-1, 0, 0.7}, []float64{0, 0, 1}},
		{TransformSpec{Kind: "step", Threshold: 0.5}, "step(0.5)", []float64{0.5, 0.51}, []float64{0, 1}},
		{TransformSpec{Kind: "linear", Scale: ptr(2), Offset: 1}, "linear(2,1)", []float64{0, 3}, []float64{1, 7}},
		{TransformSpec{Kind: "linear", Offset: -1}, "linear(1,-1)", []float64{1}, []float64{0}},
		{TransformSpec{Kind: "invert"}, "invert", []float64{0, 1}, []float64{1, 0}},
		{TransformSpec{Kind: "clamp", Min: ptr(0), Max: ptr(1)}, "clamp(0,1)", []float64{-3, 0.25, 9}, []float64{0, 0.25, 1}},
		{TransformSpec{Kind: "clamp", Max: ptr(100)}, "clamp(-inf,100)", []float64{-3, 300}, []float64{-3, 100}},
		{TransformSpec{Kind: "ABS"}, "abs", []float64{-2.5}, []float64{2.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := tt.spec.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.name, tt.spec.Name())
			for i, in := range tt.in {
				assert.Equal(t, tt.want[i], fn(in), "input %v", in)
			}
		})
	}
}

func TestTransformSpec_BuildErrors(t *testing.T) {
	for _, spec := range []TransformSpec{
		{},
		{Kind: "sqrt"},
		{Kind: "clamp", Min: ptr(2), Max: ptr(1)},
	} {
		_, err := spec.Build()
		assert.Error(t, err, "%+v", spec)
	}
}

func TestTransformSpec_UnmarshalYAML(t *testing.T) {
	var rules struct {
		A *TransformSpec `yaml:"a"`
		B *TransformSpec `yaml:"b"`
	}
	err := yaml.Unmarshal([]byte("a: positive\nb:\n  kind: linear\n  scale: 0.5\n"), &rules)
	require.NoError(t, err)

	assert.Equal(t, "positive", rules.A.Kind)
	assert.Equal(t, "linear", rules.B.Kind)
	require.NotNil(t, rules.B.Scale)
	assert.Equal(t, 0.5, *rules.B.Scale)
	assert.Equal(t, "linear(0.5,0)", rules.B.Name())
}
