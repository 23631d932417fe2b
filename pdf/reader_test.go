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

package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTestFile(t *testing.T, ver Version) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, ver)
	if err != nil {
		t.Fatal(err)
	}
	catalog := w.Alloc()
	pages := w.Alloc()
	page := w.Alloc()
	contents := w.Alloc()
	length := w.Alloc()

	data := "BT /F1 12 Tf 72 700 Td (Hello) Tj ET"
	err = w.Put(contents, &Stream{
		Dict: Dict{"Length": length},
		R:    bytes.NewReader([]byte(data)),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Put(length, Integer(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	err = w.Put(page, Dict{
		"Type":     Name("Page"),
		"Parent":   pages,
		"Contents": contents,
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Put(pages, Dict{
		"Type":     Name("Pages"),
		"Kids":     Array{page},
		"Count":    Integer(1),
		"MediaBox": Array{Integer(0), Integer(0), Integer(200), Integer(300)},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Put(catalog, Dict{"Type": Name("Catalog"), "Pages": pages})
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close(Dict{"Root": catalog})
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWriteRead(t *testing.T) {
	data := writeTestFile(t, V1_7)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if r.Version != V1_7 {
		t.Errorf("wrong version %s", r.Version)
	}

	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	n, err := NumPages(r, catalog)
	if err != nil || n != 1 {
		t.Fatalf("NumPages = %d, %v", n, err)
	}
	page, err := FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}
	box, err := GetRectangle(r, page.Attr("MediaBox"))
	if err != nil {
		t.Fatal(err)
	}
	if box.URx != 200 || box.URy != 300 {
		t.Errorf("wrong media box %v", box)
	}

	stm, err := GetStream(r, page.Dict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	body, err := ReadAll(r, stm)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff("BT /F1 12 Tf 72 700 Td (Hello) Tj ET", string(body)); d != "" {
		t.Error(d)
	}
}

func TestDamagedXRef(t *testing.T) {
	data := writeTestFile(t, V1_4)

	// shift all objects, so that the xref offsets become wrong
	idx := bytes.Index(data, []byte("1 0 obj"))
	damaged := append([]byte{}, data[:idx]...)
	damaged = append(damaged, []byte("% some junk inserted here\n")...)
	damaged = append(damaged, data[idx:]...)

	r, err := NewReader(bytes.NewReader(damaged), int64(len(damaged)))
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	page, err := FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}
	stm, err := GetStream(r, page.Dict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	body, err := ReadAll(r, stm)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(body, []byte("(Hello)")) {
		t.Errorf("wrong content %q", body)
	}
}

func TestMissingXRef(t *testing.T) {
	data := writeTestFile(t, V1_4)
	idx := bytes.Index(data, []byte("xref"))
	truncated := data[:idx]

	r, err := NewReader(bytes.NewReader(truncated), int64(len(truncated)))
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	if tp := catalog["Type"]; tp != Name("Catalog") {
		t.Errorf("wrong catalog type %v", tp)
	}
}

// TestObjectStream reads a file which stores objects in an object stream and
// uses a cross-reference stream.
func TestObjectStream(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("%PDF-1.5\n")

	objStmHead := "1 0 2 40 "
	obj1 := "<</Type/Catalog/Pages 2 0 R>>"
	obj1 += string(bytes.Repeat([]byte(" "), 40-len(obj1)))
	obj2 := "<</Type/Pages/Kids[]/Count 0>>"
	objStmData := objStmHead + obj1 + obj2

	pos3 := buf.Len()
	fmt.Fprintf(buf, "3 0 obj\n<</Type/ObjStm/N 2/First %d/Length %d>>\nstream\n%s\nendstream\nendobj\n",
		len(objStmHead), len(objStmData), objStmData)

	pos4 := buf.Len()
	var rows bytes.Buffer
	row := func(tp byte, f2 uint32, f3 uint16) {
		rows.Write([]byte{tp, byte(f2 >> 24), byte(f2 >> 16), byte(f2 >> 8), byte(f2), byte(f3 >> 8), byte(f3)})
	}
	row(0, 0, 65535)
	row(2, 3, 0)
	row(2, 3, 1)
	row(1, uint32(pos3), 0)
	row(1, uint32(pos4), 0)
	fmt.Fprintf(buf, "4 0 obj\n<</Type/XRef/Size 5/W[1 4 2]/Root 1 0 R/Length %d>>\nstream\n",
		rows.Len())
	buf.Write(rows.Bytes())
	fmt.Fprintf(buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", pos4)

	data := buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if r.repaired {
		t.Error("xref stream was not used")
	}
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	pages, err := GetDict(r, catalog["Pages"])
	if err != nil {
		t.Fatal(err)
	}
	expected := Dict{"Type": Name("Pages"), "Kids": Array{}, "Count": Integer(0)}
	if d := cmp.Diff(expected, pages); d != "" {
		t.Error(d)
	}

	_, err = FirstPage(r, catalog)
	if !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}
}

func TestEncrypted(t *testing.T) {
	data := writeTestFile(t, V1_7)
	data = bytes.Replace(data, []byte("trailer\n<<"), []byte("trailer\n<</Encrypt 99 0 R"), 1)
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
}

func TestNotPDF(t *testing.T) {
	data := []byte("this is not a PDF file")
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	var mf *MalformedFileError
	if !errors.As(err, &mf) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}
}

func TestCopier(t *testing.T) {
	data := writeTestFile(t, V1_7)
	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}

	// replace the page contents using an overlay
	ov := NewOverlay(r, r.NumObjects())
	catalog, err := r.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	page, err := FirstPage(r, catalog)
	if err != nil {
		t.Fatal(err)
	}
	newContents := ov.Add(&Stream{Dict: Dict{}, R: bytes.NewReader([]byte("0 g"))})
	newPage := page.Dict.Clone()
	newPage["Contents"] = newContents
	ov.Set(page.Ref, newPage)

	out := &bytes.Buffer{}
	w, err := NewWriter(out, r.Version)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCopier(w, ov)
	root, err := c.Copy(r.Trailer()["Root"])
	if err != nil {
		t.Fatal(err)
	}
	err = w.Close(Dict{"Root": root})
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Contains(out.Bytes(), []byte("Hello")) {
		t.Error("old content stream was copied")
	}

	r2, err := NewReader(bytes.NewReader(out.Bytes()), int64(out.Len()))
	if err != nil {
		t.Fatal(err)
	}
	catalog2, err := r2.Catalog()
	if err != nil {
		t.Fatal(err)
	}
	page2, err := FirstPage(r2, catalog2)
	if err != nil {
		t.Fatal(err)
	}
	stm, err := GetStream(r2, page2.Dict["Contents"])
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(stm.R)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "0 g" {
		t.Errorf("wrong contents %q", body)
	}
}
