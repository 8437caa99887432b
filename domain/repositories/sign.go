package repositories

import (
	"context"

	"github.com/echolearn/server/domain/entities"
)

// SignTranslator converts text into a timed sign-language gesture sequence
type SignTranslator interface {
	Translate(ctx context.Context, text string) (entities.TranslationResult, error)
}
