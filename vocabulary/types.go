package vocabulary

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/jrsteele09/go-vocab-client/internal/envelope"
)

type PartOfSpeech string

const (
	Noun         PartOfSpeech = "noun"
	Verb         PartOfSpeech = "verb"
	Adjective    PartOfSpeech = "adjective"
	Adverb       PartOfSpeech = "adverb"
	Pronoun      PartOfSpeech = "pronoun"
	Preposition  PartOfSpeech = "preposition"
	Conjunction  PartOfSpeech = "conjunction"
	Interjection PartOfSpeech = "interjection"
	Determiner   PartOfSpeech = "determiner"
	Exclamation  PartOfSpeech = "exclamation"
	Phrase       PartOfSpeech = "phrase"
)

var partsOfSpeech = []PartOfSpeech{
	Noun, Verb, Adjective, Adverb, Pronoun, Preposition,
	Conjunction, Interjection, Determiner, Exclamation, Phrase,
}

// PartsOfSpeech lists every value the API accepts.
func PartsOfSpeech() []PartOfSpeech {
	return append([]PartOfSpeech(nil), partsOfSpeech...)
}

// ParsePartOfSpeech is case-insensitive. The empty string is valid and means unset.
func ParsePartOfSpeech(s string) (PartOfSpeech, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", true
	}
	for _, p := range partsOfSpeech {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

type Phonetic struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

type Example struct {
	Sentence    string `json:"sentence"`
	Translation string `json:"translation,omitempty"`
}

type CommonPhrase struct {
	Phrase  string `json:"phrase"`
	Meaning string `json:"meaning,omitempty"`
}

type Meaning struct {
	Meaning       string         `json:"meaning"`
	Context       string         `json:"context,omitempty"`
	Examples      []Example      `json:"examples,omitempty"`
	CommonPhrases []CommonPhrase `json:"commonPhrases,omitempty"`
	PartOfSpeech  PartOfSpeech   `json:"partOfSpeech,omitempty"`
	Note          string         `json:"note,omitempty"`
}

// Vocabulary is a saved word with its meanings.
type Vocabulary struct {
	ID         string       `json:"_id"`
	Word       string       `json:"word"`
	Phonetic   *Phonetic    `json:"phonetic,omitempty"`
	Meanings   []Meaning    `json:"meanings"`
	Categories CategoryRefs `json:"categories,omitempty"`
	UserID     string       `json:"userId,omitempty"`
	CreatedAt  time.Time    `json:"createdAt,omitzero"`
	UpdatedAt  time.Time    `json:"updatedAt,omitzero"`
}

// CategoryRefs holds category ids or names. Populated category objects are reduced
// to their name, or their id when unnamed.
type CategoryRefs []string

func (c *CategoryRefs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	refs := make(CategoryRefs, 0, len(items))
	for _, item := range items {
		if envelope.IsObject(item) {
			if ref, ok := envelope.FirstString(item, []string{"name"}, []string{"_id"}, []string{"id"}); ok {
				refs = append(refs, ref)
			}
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return err
		}
		refs = append(refs, s)
	}
	*c = refs
	return nil
}

type CreateRequest struct {
	Word       string    `json:"word"`
	Phonetic   *Phonetic `json:"phonetic,omitempty"`
	Meanings   []Meaning `json:"meanings"`
	Categories []string  `json:"categories,omitempty"`
}

// UpdateRequest only sends the fields that are set.
type UpdateRequest struct {
	Word       *string   `json:"word,omitempty"`
	Phonetic   *Phonetic `json:"phonetic,omitempty"`
	Meanings   []Meaning `json:"meanings,omitempty"`
	Categories []string  `json:"categories,omitempty"`
}
