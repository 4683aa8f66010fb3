package automigrate

import (
	"slices"

	"github.com/pseudomuto/automigrate/pkg/diff"
	"github.com/pseudomuto/automigrate/pkg/schema"
)

type (
	// Differ computes the ordered structural operations turning prior into
	// desired. A nil prior means an empty database.
	Differ interface {
		Diff(prior, desired *schema.Model) []diff.Operation
	}

	// DifferFunc adapts a function to Differ.
	DifferFunc func(prior, desired *schema.Model) []diff.Operation

	// ModelDiffer is the default Differ. It keeps the order produced by
	// diff.Diff and drops seed data operations, which are never applied by
	// automatic migrations.
	ModelDiffer struct{}
)

// Diff calls f(prior, desired).
func (f DifferFunc) Diff(prior, desired *schema.Model) []diff.Operation {
	return f(prior, desired)
}

// Diff returns the structural operations between prior and desired.
func (ModelDiffer) Diff(prior, desired *schema.Model) []diff.Operation {
	return slices.DeleteFunc(diff.Diff(prior, desired), func(op diff.Operation) bool {
		return op.Kind.IsData()
	})
}
