package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyModelJSON(t *testing.T) {
	raw, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"xLabels":[],"series":[]}`, string(raw))
	assert.True(t, Empty().IsEmpty())
	assert.NoError(t, Empty().Validate())
}

func TestBuilderPadsLateSeries(t *testing.T) {
	b := NewBuilder()
	b.Declare("checkstyle", "#EF9A9A")
	b.AddColumn("#1", map[string]int{"checkstyle": 3})
	b.AddColumn("#2", map[string]int{"checkstyle": 4, "pmd": 2})
	b.AddColumn("#3", map[string]int{"pmd": 1})

	m := b.Build()
	require.NoError(t, m.Validate())
	assert.Equal(t, []string{"#1", "#2", "#3"}, m.XLabels)
	require.Len(t, m.Series, 2)
	assert.Equal(t, Series{Name: "checkstyle", Values: []int{3, 4, 0}, Color: "#EF9A9A"}, m.Series[0])
	assert.Equal(t, Series{Name: "pmd", Values: []int{0, 2, 1}}, m.Series[1])
}

func TestBuilderDeclareIsIdempotent(t *testing.T) {
	b := NewBuilder()
	b.Declare("new", "red")
	b.Declare("new", "blue")
	b.AddColumn("#1", nil)
	m := b.Build()
	require.Len(t, m.Series, 1)
	assert.Equal(t, "red", m.Series[0].Color)
	assert.Equal(t, []int{0}, m.Series[0].Values)
}

func TestBuilderWithoutColumnsIsEmpty(t *testing.T) {
	b := NewBuilder()
	b.Declare("new", "")
	assert.True(t, b.Build().IsEmpty())
}

func TestValidate(t *testing.T) {
	bad := Model{XLabels: []string{"#1", "#2"}, Series: []Series{{Name: "new", Values: []int{1}}}}
	assert.Error(t, bad.Validate())

	dup := Model{XLabels: []string{"#1"}, Series: []Series{{Name: "a", Values: []int{1}}, {Name: "a", Values: []int{2}}}}
	assert.Error(t, dup.Validate())
}

func TestSeriesByName(t *testing.T) {
	m := Model{XLabels: []string{"#1"}, Series: []Series{{Name: "fixed", Values: []int{5}}}}
	s, ok := m.SeriesByName("fixed")
	require.True(t, ok)
	assert.Equal(t, []int{5}, s.Values)
	_, ok = m.SeriesByName("new")
	assert.False(t, ok)
}
