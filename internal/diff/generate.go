package diff

import (
	"github.com/aymanbagabas/go-udiff"
)

// Generate produces a unified diff string between old and new content for
// the given path, with the conventional a/ b/ path prefixes.
func Generate(path, oldContent, newContent string) (string, error) {
	edits := udiff.Strings(oldContent, newContent)
	unified, err := udiff.ToUnifiedDiff("a/"+path, "b/"+path, oldContent, edits, 3)
	if err != nil {
		return "", err
	}
	return udiff.Format(unified)
}
