package engine

import (
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Assistant is the model-backed side of the engine.
type Assistant interface {
	service.Extractor
	service.Advisor
	// Model identifies the model, recorded in transaction provenance.
	Model() string
}
