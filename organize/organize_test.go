package organize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// writeTestPDF writes a minimal but structurally valid PDF with the
// given number of empty pages, with a correct cross-reference table.
func writeTestPDF(t *testing.T, path string, pages int) {
	t.Helper()

	objCount := 2 + pages
	offsets := make([]int, objCount+1)
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	kids := make([]string, pages)
	for i := 0; i < pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		writeObj(3+i, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", objCount+1)
	for i := 1; i <= objCount; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefPos)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

// countingResolver records how many times each document id was
// resolved so tests can assert sources are opened once.
type countingResolver struct {
	docs  map[string]string
	calls map[string]int
}

func (r *countingResolver) resolve(docID string) (string, bool) {
	r.calls[docID]++
	path, ok := r.docs[docID]
	return path, ok
}

func testComposer(t *testing.T, docs map[string]int) (*Composer, *countingResolver, string) {
	t.Helper()
	dir := t.TempDir()
	r := &countingResolver{docs: map[string]string{}, calls: map[string]int{}}
	for id, pages := range docs {
		path := filepath.Join(dir, id+".pdf")
		writeTestPDF(t, path, pages)
		r.docs[id] = path
	}
	return New(Config{Resolve: r.resolve}), r, dir
}

// pageRotations reads a PDF back and returns the effective /Rotate value
// of each page in document order, inheritance included.
func pageRotations(t *testing.T, path string) []int {
	t.Helper()
	pctx, err := api.ReadContextFile(path)
	if err != nil {
		t.Fatal(err)
	}
	root, err := pctx.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	pagesObj, found := root.Find("Pages")
	if !found {
		t.Fatal("catalog has no page tree")
	}

	var rots []int
	var walk func(o types.Object, inherited int)
	walk = func(o types.Object, inherited int) {
		obj, err := pctx.Dereference(o)
		if err != nil {
			t.Fatal(err)
		}
		d, ok := obj.(types.Dict)
		if !ok {
			t.Fatalf("page tree node is %T, want dict", obj)
		}
		rot := inherited
		if r := d.IntEntry("Rotate"); r != nil {
			rot = *r
		}
		if typ := d.Type(); typ != nil && *typ == "Pages" {
			for _, kid := range d.ArrayEntry("Kids") {
				walk(kid, rot)
			}
			return
		}
		rots = append(rots, rot%360)
	}
	walk(pagesObj, 0)
	return rots
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct {
		in, want int
		ok       bool
	}{
		{0, 0, true},
		{90, 90, true},
		{180, 180, true},
		{270, 270, true},
		{360, 0, true},
		{450, 90, true},
		{-90, 270, true},
		{-180, 180, true},
		{45, 0, false},
		{91, 0, false},
	}
	for _, c := range cases {
		got, err := NormalizeRotation(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Errorf("NormalizeRotation(%d) = %d, %v; want %d", c.in, got, err, c.want)
		}
		if !c.ok && !errors.Is(err, ErrBadRotation) {
			t.Errorf("NormalizeRotation(%d) err = %v, want ErrBadRotation", c.in, err)
		}
	}
}

func TestComposeEmptyRecipe(t *testing.T) {
	c, _, dir := testComposer(t, nil)
	err := c.Compose(context.Background(), nil, filepath.Join(dir, "out.pdf"))
	if !errors.Is(err, ErrEmptyRecipe) {
		t.Fatalf("err = %v, want ErrEmptyRecipe", err)
	}
}

func TestComposeUnknownSource(t *testing.T) {
	c, _, dir := testComposer(t, map[string]int{"a": 2})
	out := filepath.Join(dir, "out.pdf")
	err := c.Compose(context.Background(), []Step{
		{SourceDocumentID: "a", PageIndex: 0},
		{SourceDocumentID: "missing", PageIndex: 0},
	}, out)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	// The message names the offending step, 1-based.
	if !strings.Contains(err.Error(), "step 2") {
		t.Errorf("err = %q, want mention of step 2", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output file exists after failed compose")
	}
}

func TestComposePageOutOfRange(t *testing.T) {
	c, _, dir := testComposer(t, map[string]int{"a": 2})
	for _, idx := range []int{-1, 2, 99} {
		err := c.Compose(context.Background(), []Step{
			{SourceDocumentID: "a", PageIndex: idx},
		}, filepath.Join(dir, "out.pdf"))
		if !errors.Is(err, ErrPageOutOfRange) {
			t.Errorf("index %d: err = %v, want ErrPageOutOfRange", idx, err)
		}
	}
}

func TestComposeRejectsBadRotation(t *testing.T) {
	c, _, dir := testComposer(t, map[string]int{"a": 2})
	err := c.Compose(context.Background(), []Step{
		{SourceDocumentID: "a", PageIndex: 0, Rotation: 45},
	}, filepath.Join(dir, "out.pdf"))
	if !errors.Is(err, ErrBadRotation) {
		t.Fatalf("err = %v, want ErrBadRotation", err)
	}
}

func TestComposeMergesInRecipeOrder(t *testing.T) {
	c, r, dir := testComposer(t, map[string]int{"a": 3, "b": 2})
	out := filepath.Join(dir, "out.pdf")

	steps := []Step{
		{SourceDocumentID: "a", PageIndex: 2},
		{SourceDocumentID: "b", PageIndex: 0},
		{SourceDocumentID: "a", PageIndex: 0, Rotation: 90},
		{SourceDocumentID: "b", PageIndex: 1, Rotation: -270},
	}
	if err := c.Compose(context.Background(), steps, out); err != nil {
		t.Fatal(err)
	}

	got, err := api.PageCountFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if got != len(steps) {
		t.Errorf("output page count = %d, want %d", got, len(steps))
	}

	// Rotation lands on the appended page, in step order: only steps 3
	// and 4 rotated (the -270 normalizes to 90).
	rots := pageRotations(t, out)
	if want := []int{0, 0, 90, 90}; fmt.Sprint(rots) != fmt.Sprint(want) {
		t.Errorf("output rotations = %v, want %v", rots, want)
	}

	// The sources themselves stay untouched: rotation is a transform on
	// the copy, never a mutation of the shared reader.
	for id, path := range r.docs {
		for i, rot := range pageRotations(t, path) {
			if rot != 0 {
				t.Errorf("source %s page %d rotated to %d", id, i+1, rot)
			}
		}
	}

	// Each source is opened and counted once regardless of how many
	// steps reference it.
	if r.calls["a"] != 1 || r.calls["b"] != 1 {
		t.Errorf("resolver calls = %v, want one per document", r.calls)
	}
}

func TestComposeValidatesBeforeWriting(t *testing.T) {
	c, _, dir := testComposer(t, map[string]int{"a": 1})
	out := filepath.Join(dir, "out.pdf")

	// First step is valid, second is not. Nothing may be written.
	err := c.Compose(context.Background(), []Step{
		{SourceDocumentID: "a", PageIndex: 0},
		{SourceDocumentID: "a", PageIndex: 5},
	}, out)
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("err = %v, want ErrPageOutOfRange", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output file exists after failed compose")
	}
}
