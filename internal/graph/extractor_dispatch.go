package graph

import (
	"github.com/basalt-dev/sourcelens/internal/chunk"
)

// multiExtractor routes each file to goExtractor or treeSitterExtractor by
// extension, so Builder and GraphUpdater can hand it any source file instead
// of filtering down to Go before calling in.
type multiExtractor struct {
	rootDir string
	goExtr  Extractor
	byLang  map[string]Extractor
}

// NewMultiExtractor creates an Extractor spanning every language
// chunk.IsLanguageAware recognizes.
func NewMultiExtractor(rootDir string) Extractor {
	byLang := make(map[string]Extractor)
	for _, lang := range []string{"typescript", "javascript", "python", "rust", "c", "cpp", "java", "php", "ruby"} {
		byLang[lang] = NewTreeSitterExtractor(rootDir, lang)
	}
	return &multiExtractor{
		rootDir: rootDir,
		goExtr:  NewExtractor(rootDir),
		byLang:  byLang,
	}
}

func (m *multiExtractor) extractorFor(filePath string) (Extractor, bool) {
	lang := chunk.DetectLanguage(filePath)
	if lang == "go" {
		return m.goExtr, true
	}
	extr, ok := m.byLang[lang]
	return extr, ok
}

func (m *multiExtractor) ExtractFile(filePath string) (*FileGraphData, error) {
	extr, ok := m.extractorFor(filePath)
	if !ok {
		return nil, nil
	}
	return extr.ExtractFile(filePath)
}

func (m *multiExtractor) ExtractCodeStructure(filePath string) (*CodeStructure, error) {
	extr, ok := m.extractorFor(filePath)
	if !ok {
		return nil, nil
	}
	return extr.ExtractCodeStructure(filePath)
}

// SupportsFile reports whether filePath has a registered extractor, for
// callers that need to filter a file list before counting work.
func SupportsFile(filePath string) bool {
	lang := chunk.DetectLanguage(filePath)
	if lang == "go" {
		return true
	}
	return chunk.IsLanguageAware(lang)
}
