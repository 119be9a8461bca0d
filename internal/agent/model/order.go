package model

import (
	"fmt"
	"strings"
)

// OrderField names one of the four captured parts of a coffee order.
type OrderField string

const (
	FieldDrink OrderField = "drink"
	FieldSize  OrderField = "size"
	FieldMilk  OrderField = "milk"
	FieldName  OrderField = "name"
)

// OrderFields is the order the barista walks the customer through.
var OrderFields = []OrderField{FieldDrink, FieldSize, FieldMilk, FieldName}

// OrderState records which order fields have been captured. Fields only ever
// move from false to true within a session.
type OrderState struct {
	Drink bool `json:"drink"`
	Size  bool `json:"size"`
	Milk  bool `json:"milk"`
	Name  bool `json:"name"`
}

// PartialOrderState is an extractor claim. A nil field was not asserted.
type PartialOrderState struct {
	Drink *bool `json:"drink,omitempty"`
	Size  *bool `json:"size,omitempty"`
	Milk  *bool `json:"milk,omitempty"`
	Name  *bool `json:"name,omitempty"`
}

// FieldProgress is a single "field: completed|pending" line.
type FieldProgress struct {
	Field     OrderField
	Completed bool
}

// Status renders the completion as the word the prompts use.
func (p FieldProgress) Status() string {
	if p.Completed {
		return "completed"
	}
	return "pending"
}

// Merge ORs incoming into s. A false or missing incoming field never clears a
// field that is already true.
func (s OrderState) Merge(incoming PartialOrderState) OrderState {
	return OrderState{
		Drink: s.Drink || isTrue(incoming.Drink),
		Size:  s.Size || isTrue(incoming.Size),
		Milk:  s.Milk || isTrue(incoming.Milk),
		Name:  s.Name || isTrue(incoming.Name),
	}
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// Get returns the flag for f.
func (s OrderState) Get(f OrderField) bool {
	switch f {
	case FieldDrink:
		return s.Drink
	case FieldSize:
		return s.Size
	case FieldMilk:
		return s.Milk
	case FieldName:
		return s.Name
	default:
		return false
	}
}

func (s OrderState) Progress() []FieldProgress {
	out := make([]FieldProgress, 0, len(OrderFields))
	for _, f := range OrderFields {
		out = append(out, FieldProgress{Field: f, Completed: s.Get(f)})
	}
	return out
}

func (s OrderState) ProgressText() string {
	var b strings.Builder
	for i, p := range s.Progress() {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", p.Field, p.Status())
	}
	return b.String()
}

// Complete reports whether every field has been captured.
func (s OrderState) Complete() bool {
	return s.Drink && s.Size && s.Milk && s.Name
}

// NextField returns the first pending field, or "" when the order is complete.
func (s OrderState) NextField() OrderField {
	for _, f := range OrderFields {
		if !s.Get(f) {
			return f
		}
	}
	return ""
}

// CompletedCount is used for metrics.
func (s OrderState) CompletedCount() int {
	n := 0
	for _, f := range OrderFields {
		if s.Get(f) {
			n++
		}
	}
	return n
}

// Bool is a convenience for building PartialOrderState literals.
func Bool(v bool) *bool {
	return &v
}
