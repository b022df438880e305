// =============================================================================
// Shop POS - Main Entry Point
// =============================================================================
//
// USAGE:
//   pos register      - Interactive till session
//   pos sell          - One-shot checkout from flags
//   pos report daily  - Daily sales workbook
//   pos version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : Cobra command definitions
//   - internal/  : Stores, resolver, checkout and reporting
//   - pkg/utils  : Atomic writes, backups and output naming
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/shop-pos/cmd"
)

func main() {
	cmd.Execute()
}
