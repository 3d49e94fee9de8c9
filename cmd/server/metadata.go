package main

import (
	"stockflow/internal/domain/ledger"
	"stockflow/internal/domain/workflow"
	"stockflow/internal/metadata"
)

// setupMetadataRegistry registers the enumerations served under /api/v1/meta.
func setupMetadataRegistry(engine *workflow.Engine) *metadata.Registry {
	reg := metadata.NewRegistry()

	// --- Ledger ---
	reg.Register(ledger.Enums()...)

	// --- Workflow domains ---
	reg.Register(engine.Definitions().Enums()...)

	return reg
}
