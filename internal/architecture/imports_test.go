package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// forbidden lists, per top-level package under internal/, the internal
// packages it must not import. Writers and repos stay ignorant of how tasks
// are dispatched, and tasks stay ignorant of storage.
var forbidden = map[string][]string{
	"domain":        {"data", "dedup", "ingestion", "jobs", "clients", "temporalx", "observability", "app"},
	"platform":      {"domain", "data", "ingestion", "jobs", "clients", "temporalx", "observability", "app"},
	"pkg":           {"domain", "data", "ingestion", "jobs", "clients", "temporalx", "observability", "app"},
	"normalization": {"data", "ingestion", "jobs", "clients", "app"},
	"dedup":         {"data", "ingestion", "jobs", "clients", "app"},
	"data":          {"ingestion", "jobs", "clients", "temporalx", "app"},
	"jobs":          {"data", "ingestion", "clients", "temporalx", "app"},
	"clients":       {"data", "ingestion", "temporalx", "app"},
	"observability": {"data", "ingestion", "jobs", "clients", "app"},
	"temporalx":     {"data", "ingestion", "clients", "app"},
	"ingestion":     {"temporalx", "app"},
}

func TestImportBoundaries(t *testing.T) {
	root := moduleRoot(t)
	modulePath := readModulePath(t, filepath.Join(root, "go.mod"))
	prefix := modulePath + "/internal/"
	fset := token.NewFileSet()

	var violations []string
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		rel, err := filepath.Rel(filepath.Join(root, "internal"), path)
		if err != nil {
			return err
		}
		layer, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
		rules := forbidden[layer]
		if len(rules) == 0 {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil || !strings.HasPrefix(imp, prefix) {
				continue
			}
			target, _, _ := strings.Cut(strings.TrimPrefix(imp, prefix), "/")
			for _, bad := range rules {
				if target == bad {
					violations = append(violations, fmt.Sprintf("internal/%s imports %s", filepath.ToSlash(rel), imp))
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}

func readModulePath(t *testing.T, gomod string) string {
	t.Helper()
	f, err := os.Open(gomod)
	if err != nil {
		t.Fatalf("open go.mod: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("module directive not found in %s", gomod)
	return ""
}
