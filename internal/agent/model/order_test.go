package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allPartials() []PartialOrderState {
	vals := []*bool{nil, Bool(false), Bool(true)}
	var out []PartialOrderState
	for _, d := range vals {
		for _, s := range vals {
			for _, m := range vals {
				for _, n := range vals {
					out = append(out, PartialOrderState{Drink: d, Size: s, Milk: m, Name: n})
				}
			}
		}
	}
	return out
}

func allStates() []OrderState {
	var out []OrderState
	for i := 0; i < 16; i++ {
		out = append(out, OrderState{Drink: i&1 != 0, Size: i&2 != 0, Milk: i&4 != 0, Name: i&8 != 0})
	}
	return out
}

func TestMerge_NeverClearsAField(t *testing.T) {
	for _, s := range allStates() {
		for _, e := range allPartials() {
			got := s.Merge(e)
			for _, f := range OrderFields {
				if s.Get(f) {
					assert.Truef(t, got.Get(f), "state %+v merged with %+v cleared %s", s, e, f)
				}
			}
		}
	}
}

func TestMerge_SetsAssertedFields(t *testing.T) {
	got := OrderState{}.Merge(PartialOrderState{Size: Bool(true), Milk: Bool(false)})
	assert.Equal(t, OrderState{Size: true}, got)
}

func TestMerge_DrinkStaysTrue(t *testing.T) {
	current := OrderState{Drink: true}
	claim := PartialOrderState{Drink: Bool(false), Size: Bool(true), Milk: Bool(false), Name: Bool(false)}
	assert.Equal(t, OrderState{Drink: true, Size: true}, current.Merge(claim))
}

func TestMerge_RepeatedNoInfoTurnsAreIdempotent(t *testing.T) {
	s := OrderState{Drink: true, Milk: true}
	for i := 0; i < 5; i++ {
		s = s.Merge(PartialOrderState{})
	}
	assert.Equal(t, OrderState{Drink: true, Milk: true}, s)
}

func TestMerge_SessionNeverRegresses(t *testing.T) {
	claims := []PartialOrderState{
		{Drink: Bool(true)},
		{Drink: Bool(false), Size: Bool(true)},
		{},
		{Size: Bool(false), Name: Bool(true)},
		{Milk: Bool(true), Drink: Bool(false)},
	}
	s := OrderState{}
	prev := 0
	for _, c := range claims {
		s = s.Merge(c)
		assert.GreaterOrEqual(t, s.CompletedCount(), prev)
		prev = s.CompletedCount()
	}
	assert.True(t, s.Complete())
}

func TestProgressText(t *testing.T) {
	s := OrderState{Drink: true, Milk: true}
	assert.Equal(t, "drink: completed\nsize: pending\nmilk: completed\nname: pending", s.ProgressText())
}

func TestNextField(t *testing.T) {
	assert.Equal(t, FieldDrink, OrderState{}.NextField())
	assert.Equal(t, FieldMilk, OrderState{Drink: true, Size: true, Name: true}.NextField())
	assert.Equal(t, OrderField(""), OrderState{Drink: true, Size: true, Milk: true, Name: true}.NextField())
}
