package vocabulary

import (
	"fmt"
	"strings"

	errs "github.com/jrsteele09/go-vocab-client/internal/errors"
)

// Validate checks what the API would reject anyway, before a round trip.
func (r CreateRequest) Validate() error {
	if strings.TrimSpace(r.Word) == "" {
		return fmt.Errorf("%w: word is required", errs.ErrValidation)
	}
	if len(r.Meanings) == 0 {
		return fmt.Errorf("%w: at least one meaning is required", errs.ErrValidation)
	}
	return validateMeanings(r.Meanings)
}

func (r UpdateRequest) Validate() error {
	if r.Word != nil && strings.TrimSpace(*r.Word) == "" {
		return fmt.Errorf("%w: word cannot be blank", errs.ErrValidation)
	}
	return validateMeanings(r.Meanings)
}

func validateMeanings(meanings []Meaning) error {
	for i, m := range meanings {
		if strings.TrimSpace(m.Meaning) == "" {
			return fmt.Errorf("%w: meanings[%d].meaning is required", errs.ErrValidation, i)
		}
		if _, ok := ParsePartOfSpeech(string(m.PartOfSpeech)); !ok {
			return fmt.Errorf("%w: meanings[%d].partOfSpeech %q is not recognised", errs.ErrValidation, i, m.PartOfSpeech)
		}
		for j, ex := range m.Examples {
			if strings.TrimSpace(ex.Sentence) == "" {
				return fmt.Errorf("%w: meanings[%d].examples[%d].sentence is required", errs.ErrValidation, i, j)
			}
		}
	}
	return nil
}
