// Package signlang translates text into timed sign-language gesture sequences
// using a fixed dictionary, with fingerspelling for unknown words.
package signlang

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/echolearn/server/domain/entities"
	"github.com/echolearn/server/domain/repositories"
)

const (
	// SecondsPerSign is the fixed slot allotted to every sign
	SecondsPerSign = 1.5
	// SecondsPerLetter is the fingerspelling duration of one letter
	SecondsPerLetter = 0.5

	GestureFingerspell = "fingerspell"
	GestureWave        = "wave"
	GestureThumbsUp    = "thumbs_up"
	GestureNod         = "nod"
)

// Translator maps text onto a Dictionary. It holds no mutable state and is
// safe for concurrent use.
type Translator struct {
	dict Dictionary
}

// NewTranslator creates a translator over dict
func NewTranslator(dict Dictionary) *Translator {
	return &Translator{dict: dict}
}

var defaultTranslator = NewTranslator(DefaultDictionary())

// Translate translates text with the built-in dictionary
func Translate(text string) entities.TranslationResult {
	return defaultTranslator.Translate(text)
}

// Translate converts text into signs and avatar instructions. It never fails;
// empty input yields an empty result.
//
// Tokens are split on whitespace only, so punctuation stays attached and
// multi-word dictionary keys are never matched.
func (t *Translator) Translate(text string) entities.TranslationResult {
	words := strings.Fields(strings.ToLower(text))
	signs := make([]entities.SignToken, 0, len(words))

	for _, word := range words {
		timing := float64(len(signs)) * SecondsPerSign
		if entry, ok := t.dict.Lookup(word); ok {
			signs = append(signs, entities.SignToken{
				Word:        word,
				Gesture:     entry.Gesture,
				Description: entry.Description,
				Timing:      timing,
			})
			continue
		}
		signs = append(signs, entities.SignToken{
			Word:        word,
			Gesture:     GestureFingerspell,
			Description: fmt.Sprintf("Fingerspell '%s'", strings.ToUpper(word)),
			Timing:      timing,
		})
	}

	// total_duration counts fixed slots only, even when a fingerspelled
	// word's instruction runs longer than its slot.
	return entities.TranslationResult{
		OriginalText:       text,
		TotalDuration:      float64(len(signs)) * SecondsPerSign,
		Signs:              signs,
		AvatarInstructions: AvatarInstructions(signs),
	}
}

// AvatarInstructions derives one instruction per sign, in order
func AvatarInstructions(signs []entities.SignToken) []entities.AvatarInstruction {
	instructions := make([]entities.AvatarInstruction, 0, len(signs))
	for _, sign := range signs {
		instructions = append(instructions, avatarInstruction(sign))
	}
	return instructions
}

func avatarInstruction(sign entities.SignToken) entities.AvatarInstruction {
	switch sign.Gesture {
	case GestureWave:
		return entities.AvatarInstruction{Action: "wave_hand", Hand: "right", Duration: 1.0, Timing: sign.Timing}
	case GestureThumbsUp:
		return entities.AvatarInstruction{Action: "thumbs_up", Hand: "right", Duration: 1.0, Timing: sign.Timing}
	case GestureNod:
		return entities.AvatarInstruction{Action: "nod_head", Direction: "vertical", Duration: 1.0, Timing: sign.Timing}
	case GestureFingerspell:
		return entities.AvatarInstruction{
			Action:   "fingerspell_sequence",
			Letters:  sign.Word,
			Duration: float64(utf8.RuneCountInString(sign.Word)) * SecondsPerLetter,
			Timing:   sign.Timing,
		}
	default:
		return entities.AvatarInstruction{Action: "point_forward", Hand: "right", Duration: 1.0, Timing: sign.Timing}
	}
}

// Fallback exposes a Translator as a repositories.SignTranslator
type Fallback struct {
	translator *Translator
}

var _ repositories.SignTranslator = (*Fallback)(nil)

// NewFallback wraps translator; nil uses the built-in dictionary
func NewFallback(translator *Translator) *Fallback {
	if translator == nil {
		translator = defaultTranslator
	}
	return &Fallback{translator: translator}
}

// Translate implements repositories.SignTranslator. The error is always nil.
func (f *Fallback) Translate(_ context.Context, text string) (entities.TranslationResult, error) {
	return f.translator.Translate(text), nil
}
