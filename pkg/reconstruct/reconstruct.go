// Package reconstruct turns stored snapshot text back into a schema model.
package reconstruct

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/automigrate/pkg/schema"
)

// ErrSnapshotDecode is wrapped by every reconstruction failure.
var ErrSnapshotDecode = errors.New("failed to reconstruct model from snapshot")

type (
	// Replacement is a literal substitution applied to snapshot text before it
	// is decoded. Replacements let a release rename tables or types that
	// earlier releases recorded under another name.
	Replacement struct {
		From string `yaml:"from"`
		To   string `yaml:"to"`
	}

	// Reconstructor decodes snapshot documents.
	//
	// Example usage:
	//
	//	r := reconstruct.New([]reconstruct.Replacement{
	//		{From: "name: accounts", To: "name: users"},
	//	})
	//
	//	model, err := r.Reconstruct(latest.Text)
	//	if errors.Is(err, reconstruct.ErrSnapshotDecode) {
	//		log.Fatal(err)
	//	}
	Reconstructor struct {
		replacements []Replacement
	}
)

// New creates a Reconstructor applying replacements in order.
func New(replacements []Replacement) *Reconstructor {
	return &Reconstructor{replacements: replacements}
}

// Reconstruct applies the replacements, decodes the document and finalizes
// the model the same way live models are finalized.
func (r *Reconstructor) Reconstruct(text string) (*schema.Model, error) {
	for _, rep := range r.replacements {
		if rep.From == "" {
			continue
		}
		text = strings.ReplaceAll(text, rep.From, rep.To)
	}

	model, err := schema.Parse(text)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return model, nil
}

// DecodeError carries the underlying decode or validation failure. It
// matches ErrSnapshotDecode with errors.Is.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	var verr *schema.ValidationError
	if errors.As(e.Err, &verr) {
		return ErrSnapshotDecode.Error() + ": " + strings.Join(verr.Problems, "; ")
	}
	return ErrSnapshotDecode.Error() + ": " + e.Err.Error()
}

func (e *DecodeError) Is(target error) bool { return target == ErrSnapshotDecode }

func (e *DecodeError) Unwrap() error { return e.Err }
