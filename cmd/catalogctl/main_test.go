package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-quest/internal/catalog"
)

func init() {
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	doc := "regions:\n  - id: meadow\nconcepts:\n  - id: c1\n    region: meadow\n    topics:\n      - id: t1\n        subtopics:\n          - id: s1\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", path)
	if err != nil {
		t.Fatalf("validate error = %v\n%s", err, out)
	}
	for _, want := range []string{"concepts:  1", "subtopics: 1", "no content_id", "catalog is valid"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("concepts:\n  - id: c1\n    region: ghost\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "validate", path)
	if err == nil {
		t.Fatal("validate should fail for an unknown region")
	}
	if !strings.Contains(out, "invalid:") {
		t.Errorf("output = %q, want invalid marker", out)
	}
}

func TestValidate_NeedsArg(t *testing.T) {
	if _, err := execute(t, "validate"); err == nil {
		t.Error("validate without args should fail")
	}
}

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", catalog.SheetRegions); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet(catalog.SheetCatalog); err != nil {
		t.Fatal(err)
	}
	f.SetSheetRow(catalog.SheetRegions, "A1", &[]any{"id", "name", "display_name", "position", "color"})
	f.SetSheetRow(catalog.SheetRegions, "A2", &[]any{"meadow", "meadow", "", 1, ""})
	f.SetSheetRow(catalog.SheetCatalog, "A1", &[]any{"region", "concept", "concept_title", "order", "topic", "topic_title", "subtopic", "subtopic_title", "content_id"})
	f.SetSheetRow(catalog.SheetCatalog, "A2", &[]any{"meadow", "c1", "Counting", 1, "t1", "To ten", "s1", "One to five", 14})

	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "catalog.xlsx")
	dst := filepath.Join(dir, "catalog.yaml")
	writeWorkbook(t, src)

	out, err := execute(t, "convert", src, dst)
	if err != nil {
		t.Fatalf("convert error = %v\n%s", err, out)
	}

	cat, err := catalog.Load(dst)
	if err != nil {
		t.Fatalf("converted catalog does not load: %v", err)
	}
	if len(cat.Concepts) != 1 || cat.Concepts[0].Topics[0].Subtopics[0].ContentID != 14 {
		t.Errorf("converted catalog = %+v", cat)
	}

	if _, err := execute(t, "convert", src, dst); err == nil {
		t.Error("convert should refuse to overwrite without --force")
	}
	if _, err := execute(t, "convert", "--force", src, dst); err != nil {
		t.Errorf("convert --force error = %v", err)
	}
}
