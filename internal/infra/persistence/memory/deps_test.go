package memory

import (
	"go/build"
	"strings"
	"testing"
)

var allowedProjectImports = map[string]struct{}{
	"ingredientcore/pkg/domain":          {},
	"ingredientcore/pkg/domain/fieldmap": {},
	"ingredientcore/pkg/schema":          {},
	"ingredientcore/pkg/textnorm":        {},
}

func TestImportsAreDomainOrStdlib(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "ingredientcore/") {
			continue
		}
		if _, ok := allowedProjectImports[imp]; ok {
			continue
		}
		t.Fatalf("unexpected dependency: %s", imp)
	}
}
