package vectorstore

import "fmt"

// Backend selects which Store implementation Open returns.
type Backend string

const (
	BackendSQLite  Backend = "sqlite"
	BackendChromem Backend = "chromem"
)

// Config is the vectorstore.backend config surface (SPEC_FULL §6.4): a plain
// table lookup, no global registry, matching Design Notes §9's guidance for
// every other pluggable-implementation seam in this repository.
type Config struct {
	Backend    Backend
	SQLitePath string
	Dimensions int
}

func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(cfg.SQLitePath, cfg.Dimensions)
	case BackendChromem:
		return OpenChromem()
	default:
		return nil, fmt.Errorf("unknown vectorstore backend: %s", cfg.Backend)
	}
}
