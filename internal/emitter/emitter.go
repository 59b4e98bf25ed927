// Package emitter renders a binary blob as C++ source: a fixed-size byte array
// initialized with one hexadecimal literal per byte, followed by an integer
// holding the byte count.
//
// With DefaultOptions the output is:
//
//	#include <cstdint>
//	alignas(16) const unsigned char g_model[] = {
//	0x00,0x01,...,0x0b,
//	...
//	};
//	const unsigned int g_model_len = N;
//
// A newline always follows the last value, so an empty blob or one whose
// length is a multiple of the line width leaves an empty line before "};".
package emitter

import (
	"bufio"
	"bytes"
	"io"
	"text/template"

	"github.com/qaartru2266-jpg/hxc143/internal/templates"
)

const hexDigits = "0123456789abcdef"

var sourceTmpl = mustLoadTemplate(templates.ArraySource)

func mustLoadTemplate(name string) *template.Template {
	content, err := templates.Get(name)
	if err != nil {
		panic(err)
	}
	return template.Must(template.New(name).Parse(content))
}

// declarations is the data passed to the header and trailer templates.
type declarations struct {
	Symbol       string
	LengthSymbol string
	Align        int
	Length       int
}

// Emit writes the generated source for data to w.
// It returns ErrInvalidOptions if opts fail validation, or the first write error.
func Emit(w io.Writer, data []byte, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	opts = opts.withDefaults()

	decl := declarations{
		Symbol:       opts.Symbol,
		LengthSymbol: opts.LengthSymbol,
		Align:        opts.Align,
		Length:       len(data),
	}

	bw := bufio.NewWriter(w)
	if err := sourceTmpl.ExecuteTemplate(bw, "header", decl); err != nil {
		return err
	}
	writeValues(bw, data, opts.PerLine)
	if err := sourceTmpl.ExecuteTemplate(bw, "trailer", decl); err != nil {
		return err
	}
	return bw.Flush()
}

// Render returns the generated source for data.
func Render(data []byte, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)*5 + len(data)/DefaultPerLine + 128)
	if err := Emit(&buf, data, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeValues writes every byte as "0xhh," and breaks the line after every
// perLine values. Write errors are sticky in bw and surface on Flush.
func writeValues(bw *bufio.Writer, data []byte, perLine int) {
	cell := [5]byte{'0', 'x', 0, 0, ','}
	for i, b := range data {
		cell[2] = hexDigits[b>>4]
		cell[3] = hexDigits[b&0x0f]
		bw.Write(cell[:])
		if i%perLine == perLine-1 {
			bw.WriteByte('\n')
		}
	}
}
