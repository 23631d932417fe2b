// seehuhn.de/go/redact - remove content from regions of PDF pages
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package redact

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/xmp"

	"seehuhn.de/go/redact/content"
	"seehuhn.de/go/redact/extract"
	"seehuhn.de/go/redact/internal/testpdf"
	"seehuhn.de/go/redact/pdf"
)

func writeInput(t *testing.T, doc *testpdf.Document) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "in.pdf")
	err := doc.WriteFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	return fname
}

func redactFile(t *testing.T, in string, rects []rect.Rect, opt *Options) string {
	t.Helper()
	doc, err := Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	out := filepath.Join(t.TempDir(), "out.pdf")
	err = Apply(doc, rects, out, opt)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func pageText(t *testing.T, fname string) string {
	t.Helper()
	text, err := extract.File(fname)
	if err != nil {
		t.Fatal(err)
	}
	return text
}

// pageOps returns the content stream of the first page, without the
// trailing black boxes.
func pageOps(t *testing.T, fname string) (body, boxes []content.Operator) {
	t.Helper()
	r, err := pdf.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	page, err := pdf.FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}
	data, err := page.Contents(r)
	if err != nil {
		t.Fatal(err)
	}
	ops, err := content.Parse(data)
	if err != nil {
		t.Fatal(err)
	}

	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Name == "Q" {
			return ops[:i+1], ops[i+1:]
		}
	}
	t.Fatal("no Q operator found")
	return nil, nil
}

func countOps(ops []content.Operator, name string) int {
	n := 0
	for _, op := range ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

func textDoc(content string) *testpdf.Document {
	return &testpdf.Document{
		Content: content,
		Fonts:   map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
	}
}

const twoLines = `BT
/F1 12 Tf
72 700 Td
(Public text) Tj
0 -20 Td
(SECRET data) Tj
ET
`

func TestTextRemoved(t *testing.T) {
	in := writeInput(t, textDoc(twoLines))
	out := redactFile(t, in, []rect.Rect{{LLx: 70, LLy: 675, URx: 300, URy: 690}}, nil)

	text := pageText(t, out)
	if strings.Contains(text, "SECRET") || strings.Contains(text, "data") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.Contains(text, "Public text") {
		t.Errorf("text outside the rectangle was removed: %q", text)
	}
}

func TestGlyphPositions(t *testing.T) {
	in := writeInput(t, textDoc("BT /F1 10 Tf 72 500 Td (ABCDEF) Tj ET"))

	// Helvetica at 10pt: A and B end at x=85.34, C and D span 85.34 to
	// 99.78, E starts at 99.78.
	out := redactFile(t, in, []rect.Rect{{LLx: 86, LLy: 490, URx: 99, URy: 510}}, nil)

	if text := pageText(t, out); text != "AB EF" {
		t.Errorf("got text %q, want %q", text, "AB EF")
	}

	body, _ := pageOps(t, out)
	var tj *content.Operator
	for i := range body {
		if body[i].Name == "TJ" {
			tj = &body[i]
		}
	}
	if tj == nil {
		t.Fatal("no TJ operator found")
	}
	elems := tj.Args[0].(pdf.Array)
	if len(elems) != 3 {
		t.Fatalf("got %d TJ elements, want 3", len(elems))
	}
	if !cmp.Equal(elems[0], pdf.Object(pdf.String("AB"))) || !cmp.Equal(elems[2], pdf.Object(pdf.String("EF"))) {
		t.Errorf("wrong glyphs kept: %v", elems)
	}
	adj, err := pdf.GetNumber(nil, elems[1])
	if err != nil || math.Abs(adj+1444) > 1e-3 {
		t.Errorf("got adjustment %v, want -1444", elems[1])
	}
}

func TestSingleQuoteOperators(t *testing.T) {
	in := writeInput(t, textDoc(`BT /F1 12 Tf 14 TL 72 700 Td (first) Tj (second) ' 2 1 (third) " ET`))

	// the second line is at y=686, the third at y=672
	out := redactFile(t, in, []rect.Rect{{LLx: 60, LLy: 683, URx: 300, URy: 690}}, nil)
	text := pageText(t, out)
	if strings.Contains(text, "second") {
		t.Errorf("redacted text still present: %q", text)
	}
	for _, word := range []string{"first", "third"} {
		if !strings.Contains(text, word) {
			t.Errorf("%q missing from %q", word, text)
		}
	}
}

func TestOriginalUnchanged(t *testing.T) {
	in := writeInput(t, textDoc(twoLines))
	before, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}

	redactFile(t, in, []rect.Rect{{LLx: 0, LLy: 0, URx: 612, URy: 792}}, nil)

	after, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("input file was modified")
	}
}

func TestSameFile(t *testing.T) {
	in := writeInput(t, textDoc(twoLines))
	doc, err := Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	err = Apply(doc, nil, in, nil)
	var ioErr *IOError
	if !errors.As(err, &ioErr) || !errors.Is(err, ErrSameFile) {
		t.Errorf("got error %v, want ErrSameFile", err)
	}
}

func TestMissingOutputDir(t *testing.T) {
	in := writeInput(t, textDoc(twoLines))
	doc, err := Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	out := filepath.Join(t.TempDir(), "missing", "out.pdf")
	err = Apply(doc, nil, out, nil)
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("got error %v, want IOError", err)
	}
	if ioErr.Path != out {
		t.Errorf("wrong path %q in error", ioErr.Path)
	}
}

func TestDamagedForm(t *testing.T) {
	form := testpdf.Form(rect.Rect{URx: 200, URy: 100}, "not compressed")
	form.Dict["Filter"] = pdf.Name("FlateDecode")
	in := writeInput(t, &testpdf.Document{
		Content:  "q 1 0 0 1 100 400 cm /Fm1 Do Q",
		XObjects: map[pdf.Name]*testpdf.XObject{"Fm1": form},
	})
	doc, err := Open(in)
	if err != nil {
		t.Fatal(err)
	}
	defer doc.Close()

	rects := []rect.Rect{
		{LLx: 400, LLy: 600, URx: 500, URy: 650},
		{LLx: 105, LLy: 415, URx: 200, URy: 430},
	}
	dir := t.TempDir()
	err = Apply(doc, rects, filepath.Join(dir, "out.pdf"), nil)
	var encErr *EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("got error %v, want EncodingError", err)
	}
	if encErr.Index != 1 || encErr.Rect != rects[1] {
		t.Errorf("error refers to rectangle %d %v, want 1 %v", encErr.Index, encErr.Rect, rects[1])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed save left %d files behind", len(entries))
	}
}

// TestObjectStreams checks that files which store the page objects in an
// object stream, with a cross-reference stream, can be redacted.
func TestObjectStreams(t *testing.T) {
	objs := []string{
		"<</Type/Catalog/Pages 2 0 R>>",
		"<</Type/Pages/Kids[3 0 R]/Count 1>>",
		"<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]/Contents 4 0 R" +
			"/Resources<</Font<</F1<</Type/Font/Subtype/Type1/BaseFont/Helvetica" +
			"/Encoding/WinAnsiEncoding>>>>>>>>",
	}
	var head, body bytes.Buffer
	for i, obj := range objs {
		fmt.Fprintf(&head, "%d %d ", i+1, body.Len())
		body.WriteString(obj)
		body.WriteByte(' ')
	}
	stmData := head.String() + body.String()

	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.5\n")
	pos4 := buf.Len()
	fmt.Fprintf(buf, "4 0 obj\n<</Length %d>>\nstream\n%s\nendstream\nendobj\n",
		len(twoLines), twoLines)
	pos5 := buf.Len()
	fmt.Fprintf(buf, "5 0 obj\n<</Type/ObjStm/N %d/First %d/Length %d>>\nstream\n%s\nendstream\nendobj\n",
		len(objs), head.Len(), len(stmData), stmData)

	pos6 := buf.Len()
	var rows bytes.Buffer
	row := func(tp byte, f2 uint32, f3 uint16) {
		rows.Write([]byte{tp, byte(f2 >> 24), byte(f2 >> 16), byte(f2 >> 8), byte(f2), byte(f3 >> 8), byte(f3)})
	}
	row(0, 0, 65535)
	row(2, 5, 0)
	row(2, 5, 1)
	row(2, 5, 2)
	row(1, uint32(pos4), 0)
	row(1, uint32(pos5), 0)
	row(1, uint32(pos6), 0)
	fmt.Fprintf(buf, "6 0 obj\n<</Type/XRef/Size 7/W[1 4 2]/Root 1 0 R/Length %d>>\nstream\n",
		rows.Len())
	buf.Write(rows.Bytes())
	fmt.Fprintf(buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", pos6)

	in := filepath.Join(t.TempDir(), "objstm.pdf")
	err := os.WriteFile(in, buf.Bytes(), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	out := redactFile(t, in, []rect.Rect{{LLx: 70, LLy: 675, URx: 300, URy: 690}}, nil)
	text := pageText(t, out)
	if strings.Contains(text, "SECRET") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.Contains(text, "Public text") {
		t.Errorf("text outside the rectangle was removed: %q", text)
	}
}

func TestOrderIndependent(t *testing.T) {
	in := writeInput(t, &testpdf.Document{
		Content: twoLines + "100 100 50 50 re f 300 300 m 400 400 l S",
		Fonts:   map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
	})
	a := rect.Rect{LLx: 70, LLy: 675, URx: 120, URy: 690}
	b := rect.Rect{LLx: 120, LLy: 120, URx: 350, URy: 350}

	out1 := redactFile(t, in, []rect.Rect{a, b}, nil)
	out2 := redactFile(t, in, []rect.Rect{b, a}, nil)

	body1, _ := pageOps(t, out1)
	body2, _ := pageOps(t, out2)
	if d := cmp.Diff(body1, body2); d != "" {
		t.Errorf("result depends on rectangle order (-1 +2):\n%s", d)
	}
}

func TestBlackBoxes(t *testing.T) {
	type testCase struct {
		rotate int
		page   rect.Rect
		user   rect.Rect
	}
	// The media box is US letter, 612x792.
	cases := []testCase{
		{0, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}},
		{90, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}, rect.Rect{LLx: 572, LLy: 10, URx: 592, URy: 30}},
		{180, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}, rect.Rect{LLx: 582, LLy: 752, URx: 602, URy: 772}},
		{270, rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 40}, rect.Rect{LLx: 20, LLy: 762, URx: 40, URy: 782}},
	}
	for _, c := range cases {
		in := writeInput(t, &testpdf.Document{Rotate: c.rotate})
		out := redactFile(t, in, []rect.Rect{c.page}, nil)

		_, boxes := pageOps(t, out)
		want := []content.Operator{
			{Name: "g", Args: []pdf.Object{pdf.Integer(0)}},
			{Name: "re", Args: []pdf.Object{
				pdf.Number(c.user.LLx), pdf.Number(c.user.LLy),
				pdf.Number(c.user.Dx()), pdf.Number(c.user.Dy()),
			}},
			{Name: "f"},
		}
		if d := cmp.Diff(want, boxes); d != "" {
			t.Errorf("rotate %d: wrong boxes (-want +got):\n%s", c.rotate, d)
		}
	}
}

func TestRotatedText(t *testing.T) {
	doc := textDoc(twoLines)
	doc.Rotate = 90
	in := writeInput(t, doc)

	// The second line is at user space x=72..148, y=677..689.
	// Page coordinates are (px, py) = (y, 612-x).
	out := redactFile(t, in, []rect.Rect{{LLx: 675, LLy: 460, URx: 690, URy: 545}}, nil)
	text := pageText(t, out)
	if strings.Contains(text, "SECRET") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.Contains(text, "Public") {
		t.Errorf("text outside the rectangle was removed: %q", text)
	}
}

func TestLineArt(t *testing.T) {
	const paths = "100 100 50 50 re f\n200 200 m 300 200 l S\n"
	in := writeInput(t, &testpdf.Document{Content: paths})

	type testCase struct {
		policy LineArtPolicy
		r      rect.Rect
		fills  int
		stroke int
		clips  int
	}
	cases := []testCase{
		{LineArtRemoveTouched, rect.Rect{LLx: 120, LLy: 120, URx: 130, URy: 130}, 0, 1, 0},
		{LineArtRemoveCovered, rect.Rect{LLx: 120, LLy: 120, URx: 130, URy: 130}, 1, 1, 1},
		{LineArtRemoveCovered, rect.Rect{LLx: 90, LLy: 90, URx: 160, URy: 160}, 0, 1, 0},
		{LineArtRemoveCovered, rect.Rect{LLx: 90, LLy: 90, URx: 140, URy: 140}, 1, 1, 1},
		{LineArtRemoveCovered, rect.Rect{LLx: 400, LLy: 400, URx: 500, URy: 500}, 1, 1, 0},
		{LineArtRemoveTouched, rect.Rect{LLx: 250, LLy: 199.8, URx: 260, URy: 199.9}, 1, 0, 0},
		{LineArtRemoveTouched, rect.Rect{LLx: 250, LLy: 205, URx: 260, URy: 210}, 1, 1, 0},
	}
	for i, c := range cases {
		out := redactFile(t, in, []rect.Rect{c.r}, &Options{LineArt: c.policy})
		body, _ := pageOps(t, out)
		if got := countOps(body, "f"); got != c.fills {
			t.Errorf("%d: got %d fills, want %d", i, got, c.fills)
		}
		if got := countOps(body, "S"); got != c.stroke {
			t.Errorf("%d: got %d strokes, want %d", i, got, c.stroke)
		}
		if got := countOps(body, "W"); got != c.clips {
			t.Errorf("%d: got %d clipping paths, want %d", i, got, c.clips)
		}
	}
}

// A path which is kept under LineArtRemoveCovered must be clipped so that
// nothing is painted inside the redaction rectangles.
func TestLineArtCutout(t *testing.T) {
	in := writeInput(t, &testpdf.Document{Content: "2 0 0 2 0 0 cm 50 50 25 25 re f"})
	r := rect.Rect{LLx: 90, LLy: 90, URx: 140, URy: 140}
	out := redactFile(t, in, []rect.Rect{r}, &Options{LineArt: LineArtRemoveCovered})
	body, _ := pageOps(t, out)

	var names []string
	var points []vec.Vec2
	for _, op := range body {
		names = append(names, op.Name)
		if op.Name == "m" || op.Name == "l" {
			x, _ := pdf.GetNumber(nil, op.Args[0])
			y, _ := pdf.GetNumber(nil, op.Args[1])
			points = append(points, vec.Vec2{X: x, Y: y})
		}
	}
	wantNames := []string{
		"q", "cm",
		"q", "m", "l", "l", "l", "h", "m", "l", "l", "l", "h", "W", "n",
		"re", "f", "Q",
		"Q",
	}
	if d := cmp.Diff(wantNames, names); d != "" {
		t.Fatalf("unexpected operators (-want +got):\n%s", d)
	}

	// The second sub-path is the redaction rectangle, in the coordinate
	// system set by "cm".
	want := []vec.Vec2{{X: 45, Y: 45}, {X: 45, Y: 70}, {X: 70, Y: 70}, {X: 70, Y: 45}}
	if d := cmp.Diff(want, points[4:], cmp.Comparer(func(a, b float64) bool {
		return math.Abs(a-b) < 1e-6
	})); d != "" {
		t.Errorf("wrong cut-out (-want +got):\n%s", d)
	}
}

func TestClippingPathKept(t *testing.T) {
	in := writeInput(t, &testpdf.Document{Content: "q 100 100 50 50 re W f 0 0 612 792 re f Q"})
	out := redactFile(t, in, []rect.Rect{{LLx: 110, LLy: 110, URx: 120, URy: 120}}, nil)

	body, _ := pageOps(t, out)
	if countOps(body, "W") != 1 || countOps(body, "n") != 1 {
		t.Errorf("clipping path not preserved: %v", body)
	}
	if countOps(body, "f") != 0 {
		t.Errorf("painted paths not removed: %v", body)
	}
}

func TestImages(t *testing.T) {
	in := writeInput(t, &testpdf.Document{
		Content: "q 100 0 0 100 200 200 cm /Im1 Do Q\nq 50 0 0 50 400 400 cm /Im2 Do Q\n" +
			"q 20 0 0 20 10 10 cm BI /W 2 /H 2 /CS /G /BPC 8 ID \x01\x02\x03\x04 EI Q",
		XObjects: map[pdf.Name]*testpdf.XObject{
			"Im1": testpdf.Image(4, 4),
			"Im2": testpdf.Image(4, 4),
		},
	})
	out := redactFile(t, in, []rect.Rect{
		{LLx: 250, LLy: 250, URx: 260, URy: 260},
		{LLx: 15, LLy: 15, URx: 16, URy: 16},
	}, nil)

	body, _ := pageOps(t, out)
	if got := countOps(body, "Do"); got != 1 {
		t.Errorf("got %d images, want 1", got)
	}
	if got := countOps(body, "BI"); got != 0 {
		t.Errorf("inline image not removed")
	}

	// the removed image must not remain in the file
	r, err := pdf.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	catalog, _ := r.Catalog()
	page, err := pdf.FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}
	res, _ := pdf.GetDict(r, page.Attr("Resources"))
	xObjects, _ := pdf.GetDict(r, res["XObject"])
	if _, ok := xObjects["Im1"]; ok {
		t.Error("removed image still in the page resources")
	}
	if _, ok := xObjects["Im2"]; !ok {
		t.Error("image outside the rectangles was removed")
	}
}

func TestFormXObject(t *testing.T) {
	form := testpdf.Form(rect.Rect{URx: 200, URy: 100},
		"BT /F1 12 Tf 10 50 Td (Visible) Tj 0 -30 Td (Hidden) Tj ET")
	in := writeInput(t, &testpdf.Document{
		Content:  "q 1 0 0 1 100 400 cm /Fm1 Do Q",
		Fonts:    map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
		XObjects: map[pdf.Name]*testpdf.XObject{"Fm1": form},
	})

	// "Hidden" is at x=110..150, y=420
	out := redactFile(t, in, []rect.Rect{{LLx: 105, LLy: 415, URx: 200, URy: 430}}, nil)
	text := pageText(t, out)
	if strings.Contains(text, "Hidden") {
		t.Errorf("redacted text still present: %q", text)
	}
	if !strings.Contains(text, "Visible") {
		t.Errorf("text outside the rectangle was removed: %q", text)
	}

	body, _ := pageOps(t, out)
	var names []pdf.Object
	for _, op := range body {
		if op.Name == "Do" {
			names = append(names, op.Args[0])
		}
	}
	if d := cmp.Diff([]pdf.Object{pdf.Name("Redacted1")}, names); d != "" {
		t.Errorf("wrong form drawn (-want +got):\n%s", d)
	}
}

func TestActualText(t *testing.T) {
	in := writeInput(t, &testpdf.Document{
		Content: "/Span <</ActualText (SECRET)>> BDC BT /F1 12 Tf 72 700 Td (SECRET) Tj ET EMC\n" +
			"/Span /P1 BDC BT /F1 12 Tf 72 600 Td (Other) Tj ET EMC\n" +
			"/Span /P2 BDC BT /F1 12 Tf 72 500 Td (Kept) Tj ET EMC",
		Fonts: map[pdf.Name]pdf.Dict{"F1": testpdf.Helvetica()},
		Properties: map[pdf.Name]pdf.Dict{
			"P1": {"ActualText": pdf.String("Other")},
			"P2": {"ActualText": pdf.String("Kept")},
		},
	})
	out := redactFile(t, in, []rect.Rect{
		{LLx: 60, LLy: 695, URx: 200, URy: 705},
		{LLx: 60, LLy: 595, URx: 200, URy: 605},
	}, nil)

	body, _ := pageOps(t, out)
	var props []pdf.Object
	for _, op := range body {
		if op.Name == "BDC" {
			props = append(props, op.Args[1])
		}
	}
	want := []pdf.Object{pdf.Dict{}, pdf.Name("Redacted1"), pdf.Name("P2")}
	if d := cmp.Diff(want, props); d != "" {
		t.Errorf("wrong marked content properties (-want +got):\n%s", d)
	}
}

func TestAnnotations(t *testing.T) {
	in := writeInput(t, &testpdf.Document{
		Annots: []pdf.Dict{
			{"Subtype": pdf.Name("Text"), "Rect": pdf.Rectangle(rect.Rect{LLx: 100, LLy: 100, URx: 120, URy: 120}), "Popup": testpdf.AnnotRef(1)},
			{"Subtype": pdf.Name("Popup"), "Rect": pdf.Rectangle(rect.Rect{LLx: 300, LLy: 300, URx: 400, URy: 400}), "Parent": testpdf.AnnotRef(0)},
			{"Subtype": pdf.Name("Widget"), "FT": pdf.Name("Tx"), "T": pdf.String("name"), "Rect": pdf.Rectangle(rect.Rect{LLx: 100, LLy: 200, URx: 200, URy: 220})},
			{"Subtype": pdf.Name("Widget"), "FT": pdf.Name("Tx"), "T": pdf.String("other"), "Rect": pdf.Rectangle(rect.Rect{LLx: 100, LLy: 500, URx: 200, URy: 520})},
		},
		Fields: true,
	})
	out := redactFile(t, in, []rect.Rect{
		{LLx: 110, LLy: 110, URx: 115, URy: 115},
		{LLx: 150, LLy: 210, URx: 160, URy: 215},
	}, nil)

	r, err := pdf.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	page, err := pdf.FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}

	annots, _ := pdf.GetArray(r, page.Dict["Annots"])
	if len(annots) != 1 {
		t.Fatalf("got %d annotations, want 1", len(annots))
	}
	kept, _ := pdf.GetDict(r, annots[0])
	if !cmp.Equal(kept["T"], pdf.Object(pdf.String("other"))) {
		t.Errorf("wrong annotation kept: %v", kept)
	}

	acroForm, _ := pdf.GetDict(r, catalog["AcroForm"])
	fields, _ := pdf.GetArray(r, acroForm["Fields"])
	if len(fields) != 1 || fields[0] != annots[0] {
		t.Errorf("form fields not updated: %v", fields)
	}
}

func TestMetadata(t *testing.T) {
	old := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	packet := xmp.NewPacket()
	packet.Set(&xmpDates{ModifyDate: xmp.NewDate(old), MetadataDate: xmp.NewDate(old)})
	buf := &bytes.Buffer{}
	err := packet.Write(buf, &xmp.PacketOptions{})
	if err != nil {
		t.Fatal(err)
	}

	in := writeInput(t, &testpdf.Document{
		Info: pdf.Dict{
			"Title":   pdf.TextString("Test"),
			"ModDate": pdf.Date(old),
		},
		Metadata: buf.Bytes(),
		ID:       pdf.Array{pdf.String("0123456789abcdef"), pdf.String("0123456789abcdef")},
	})
	out := redactFile(t, in, nil, &Options{Now: func() time.Time { return now }})

	r, err := pdf.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	info, err := pdf.GetDict(r, r.Trailer()["Info"])
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(info["ModDate"], pdf.Object(pdf.Date(now))) {
		t.Errorf("got ModDate %v, want %v", info["ModDate"], pdf.Date(now))
	}
	if !cmp.Equal(info["Title"], pdf.Object(pdf.TextString("Test"))) {
		t.Errorf("title changed to %v", info["Title"])
	}

	id, _ := pdf.GetArray(r, r.Trailer()["ID"])
	if len(id) != 2 || !cmp.Equal(id[0], pdf.Object(pdf.String("0123456789abcdef"))) || cmp.Equal(id[1], id[0]) {
		t.Errorf("wrong file identifier %v", id)
	}

	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	stm, err := pdf.GetStream(r, catalog["Metadata"])
	if err != nil || stm == nil {
		t.Fatalf("missing metadata stream: %v", err)
	}
	data, err := pdf.ReadAll(r, stm)
	if err != nil {
		t.Fatal(err)
	}
	got, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	dates := &xmpDates{}
	got.Get(dates)
	if !dates.ModifyDate.V.Equal(now) || !dates.MetadataDate.V.Equal(now) {
		t.Errorf("wrong XMP dates %v, %v", dates.ModifyDate.V, dates.MetadataDate.V)
	}
}

func TestOtherPagesPreserved(t *testing.T) {
	doc := textDoc(twoLines)
	doc.NumPages = 3
	in := writeInput(t, doc)
	out := redactFile(t, in, []rect.Rect{{LLx: 0, LLy: 0, URx: 612, URy: 792}}, nil)

	redacted, err := Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer redacted.Close()
	if n := redacted.NumPages(); n != 3 {
		t.Errorf("got %d pages, want 3", n)
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "text.pdf")
	err := os.WriteFile(notPDF, []byte("hello, world\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	for _, fname := range []string{filepath.Join(dir, "missing.pdf"), notPDF} {
		_, err := Open(fname)
		var inErr *InputError
		if !errors.As(err, &inErr) {
			t.Errorf("%s: got error %v, want InputError", fname, err)
		}
	}
}

func TestPageSize(t *testing.T) {
	type testCase struct {
		rotate  int
		crop    rect.Rect
		want    vec.Vec2
		wantRot int
	}
	cases := []testCase{
		{0, rect.Rect{}, vec.Vec2{X: 612, Y: 792}, 0},
		{90, rect.Rect{}, vec.Vec2{X: 792, Y: 612}, 90},
		{-90, rect.Rect{}, vec.Vec2{X: 792, Y: 612}, 270},
		{540, rect.Rect{LLx: 100, LLy: 100, URx: 300, URy: 200}, vec.Vec2{X: 200, Y: 100}, 180},
		{0, rect.Rect{LLx: 500, LLy: 700, URx: 900, URy: 900}, vec.Vec2{X: 112, Y: 92}, 0},
	}
	for _, c := range cases {
		in := writeInput(t, &testpdf.Document{Rotate: c.rotate, CropBox: c.crop})
		doc, err := Open(in)
		if err != nil {
			t.Fatal(err)
		}
		if got := doc.PageSize(); got != c.want {
			t.Errorf("rotate %d, crop %v: got size %v, want %v", c.rotate, c.crop, got, c.want)
		}
		if got := doc.Rotation(); got != c.wantRot {
			t.Errorf("rotate %d: got rotation %d, want %d", c.rotate, got, c.wantRot)
		}
		doc.Close()
	}
}

func TestTransformRect(t *testing.T) {
	r := rect.Rect{LLx: 10, LLy: 20, URx: 30, URy: 60}
	cases := []struct {
		m    matrix.Matrix
		want rect.Rect
	}{
		{matrix.Identity, r},
		{matrix.Translate(5, -5), rect.Rect{LLx: 15, LLy: 15, URx: 35, URy: 55}},
		{matrix.Matrix{0, 1, -1, 0, 612, 0}, rect.Rect{LLx: 552, LLy: 10, URx: 592, URy: 30}},
		{matrix.Matrix{2, 0, 0, -1, 0, 100}, rect.Rect{LLx: 20, LLy: 40, URx: 60, URy: 80}},
	}
	for i, c := range cases {
		got := transformRect(r, c.m)
		if d := cmp.Diff(c.want, got); d != "" {
			t.Errorf("%d: unexpected result (-want +got):\n%s", i, d)
		}
	}
}
