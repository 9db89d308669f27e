package needs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVector_AddClamps(t *testing.T) {
	v := Vector{Hunger: 95, Social: 3, Energy: 50}
	got := v.Add(Vector{Hunger: 20, Social: -10, Energy: 1})
	assert.Equal(t, Vector{Hunger: 100, Social: 0, Energy: 51}, got)
	assert.True(t, got.InRange())
}

func TestVector_Pressure(t *testing.T) {
	v := Vector{Hunger: 10, Social: 20, Energy: 70}
	assert.Equal(t, Vector{Hunger: 10, Social: 20, Energy: 30}, v.Pressure())
}

func TestWeights_Scale(t *testing.T) {
	w := DefaultWeights().Scale(Weights{Hunger: 1, Social: 2, Energy: 1, Money: 0})
	assert.Equal(t, 2.0, w.Social)
	assert.Equal(t, 0.0, w.Money)
	assert.Equal(t, 1.5, w.Hunger)
}
