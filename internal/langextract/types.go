package langextract

import "github.com/basalt-dev/sourcelens/internal/langextract/symbol"

// Extraction represents the three-tier extraction from a source code file.
type Extraction struct {
	// Symbols contains high-level overview (package, imports count, type/function names)
	Symbols *symbol.Table

	// Definitions contains full type definitions and function signatures
	Definitions *symbol.Definitions

	// Data contains constants, global variables, and configuration
	Data *symbol.Data

	// Metadata about the extraction
	Language  string
	FilePath  string
	StartLine int
	EndLine   int
}
