// Package facerec adapts the external face-recognition capability the vault
// consumes: embedding extraction from raw images and the match policy between
// embeddings. The vault is agnostic to the underlying model; metric and
// threshold are deployment configuration, not vault logic.
package facerec

import (
	"context"

	"github.com/algohackers/saarthi-vault/internal/model"
)

// Extractor produces a face embedding from a raw image. A frame with no
// usable subject yields errs.ErrNoSubjectDetected.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (model.Embedding, error)
}

// Matcher decides whether two embeddings belong to the same subject.
type Matcher interface {
	Match(a, b model.Embedding) bool
}
