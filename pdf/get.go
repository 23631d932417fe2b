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
	"errors"
	"fmt"
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// Getter represents a PDF file opened for reading.
type Getter interface {
	// Get reads an indirect object.  Missing objects are returned as nil.
	Get(ref Reference) (Object, error)
}

// Resolve resolves references to indirect objects.
//
// If obj is a [Reference], the function reads the corresponding object from
// the file and returns the result.  If obj is not a [Reference], it is
// returned unchanged.  The function recursively follows chains of
// references until it resolves to a non-reference object.
//
// If a reference loop is encountered, the function returns an error of type
// [MalformedFileError].
func Resolve(r Getter, obj Object) (Object, error) {
	count := 0
	for {
		ref, isReference := obj.(Reference)
		if !isReference {
			break
		}
		count++
		if count > 16 {
			return nil, &MalformedFileError{
				Err: errors.New("too many levels of indirection"),
				Loc: []string{"object " + ref.String()},
			}
		}

		var err error
		obj, err = r.Get(ref)
		if err != nil {
			return nil, Wrap(err, "object "+ref.String())
		}
	}

	return obj, nil
}

func resolveAndCast[T Object](r Getter, obj Object) (x T, err error) {
	obj, err = Resolve(r, obj)
	if err != nil {
		return x, err
	}

	if obj == nil {
		return x, nil
	}

	var isCorrectType bool
	x, isCorrectType = obj.(T)
	if isCorrectType {
		return x, nil
	}

	return x, &MalformedFileError{
		Err: fmt.Errorf("expected %T but got %T", x, obj),
	}
}

// GetArray resolves any indirect reference and checks that the resulting
// object is an array.  Null objects are returned as nil.
func GetArray(r Getter, obj Object) (Array, error) {
	return resolveAndCast[Array](r, obj)
}

// GetBoolean resolves any indirect reference and checks that the resulting
// object is a boolean.
func GetBoolean(r Getter, obj Object) (Boolean, error) {
	return resolveAndCast[Boolean](r, obj)
}

// GetDict resolves any indirect reference and checks that the resulting
// object is a dictionary.  Null objects are returned as nil.
func GetDict(r Getter, obj Object) (Dict, error) {
	return resolveAndCast[Dict](r, obj)
}

// GetInteger resolves any indirect reference and checks that the resulting
// object is an integer.  Integral real numbers are converted.
func GetInteger(r Getter, obj Object) (Integer, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return x, nil
	case Real:
		if y := math.Round(float64(x)); y == float64(x) {
			return Integer(y), nil
		}
	case nil:
		return 0, nil
	}
	return 0, &MalformedFileError{
		Err: fmt.Errorf("expected integer but got %T", obj),
	}
}

// GetName resolves any indirect reference and checks that the resulting
// object is a name.
func GetName(r Getter, obj Object) (Name, error) {
	return resolveAndCast[Name](r, obj)
}

// GetStream resolves any indirect reference and checks that the resulting
// object is a stream.  Null objects are returned as nil.
func GetStream(r Getter, obj Object) (*Stream, error) {
	return resolveAndCast[*Stream](r, obj)
}

// GetString resolves any indirect reference and checks that the resulting
// object is a string.
func GetString(r Getter, obj Object) (String, error) {
	return resolveAndCast[String](r, obj)
}

// GetNumber resolves any indirect reference and checks that the resulting
// object is an Integer or a Real.
func GetNumber(r Getter, obj Object) (float64, error) {
	obj, err := Resolve(r, obj)
	if err != nil {
		return 0, err
	}
	switch x := obj.(type) {
	case Integer:
		return float64(x), nil
	case Real:
		return float64(x), nil
	case nil:
		return 0, nil
	default:
		return 0, &MalformedFileError{
			Err: fmt.Errorf("expected number but got %T", obj),
		}
	}
}

// GetRectangle resolves any indirect reference and converts the resulting
// array of four numbers into a rectangle.  The corners are normalized.
// Null objects are returned as a zero rectangle.
func GetRectangle(r Getter, obj Object) (rect.Rect, error) {
	a, err := GetArray(r, obj)
	if err != nil {
		return rect.Rect{}, err
	}
	if a == nil {
		return rect.Rect{}, nil
	}
	if len(a) != 4 {
		return rect.Rect{}, &MalformedFileError{
			Err: fmt.Errorf("expected rectangle but got array of length %d", len(a)),
		}
	}
	var v [4]float64
	for i, obj := range a {
		v[i], err = GetNumber(r, obj)
		if err != nil {
			return rect.Rect{}, err
		}
	}
	return rect.Rect{
		LLx: math.Min(v[0], v[2]),
		LLy: math.Min(v[1], v[3]),
		URx: math.Max(v[0], v[2]),
		URy: math.Max(v[1], v[3]),
	}, nil
}

// GetMatrix resolves any indirect reference and converts the resulting
// array of six numbers into a transformation matrix.  Null objects are
// returned as the identity matrix.
func GetMatrix(r Getter, obj Object) (matrix.Matrix, error) {
	a, err := GetArray(r, obj)
	if err != nil {
		return matrix.Identity, err
	}
	if a == nil {
		return matrix.Identity, nil
	}
	if len(a) != 6 {
		return matrix.Identity, &MalformedFileError{
			Err: fmt.Errorf("expected matrix but got array of length %d", len(a)),
		}
	}
	var m matrix.Matrix
	for i, obj := range a {
		m[i], err = GetNumber(r, obj)
		if err != nil {
			return matrix.Identity, err
		}
	}
	return m, nil
}

// Rectangle converts a rectangle into a PDF array.
func Rectangle(r rect.Rect) Array {
	return Array{
		Number(r.LLx), Number(r.LLy), Number(r.URx), Number(r.URy),
	}
}

// Number returns an Integer if x is integral, and a Real otherwise.
func Number(x float64) Object {
	if y := math.Round(x); math.Abs(x-y) < 1e-9 && math.Abs(y) < 1<<53 {
		return Integer(y)
	}
	return Real(x)
}
