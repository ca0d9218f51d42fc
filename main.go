// =============================================================================
// Sales Reconciliation Engine - Main Entry Point
// =============================================================================
//
// This is the entry point for the salesrecon CLI. It delegates command
// execution to the cmd package.
//
// USAGE:
//   salesrecon analyze       - Reconcile POS exports and write reports
//   salesrecon aliases       - Print the effective column alias table
//   salesrecon validate      - Validate configuration and source profiles
//   salesrecon version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Reconciliation pipeline, readers, reports, config
//   - pkg/           : Shared file utilities
//   - profiles/      : Per-source YAML or TOML profiles
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/salesrecon/cmd"
)

func main() {
	cmd.Execute()
}
