package emitter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned by Parse when the input is not a generated source.
	ErrMalformed = errors.New("malformed byte-array source")
	// ErrLengthMismatch is returned by Parse when the declared length differs
	// from the number of array elements.
	ErrLengthMismatch = errors.New("declared length does not match array elements")
)

var (
	arrayDeclRe  = regexp.MustCompile(`^(?:alignas\((\d+)\)\s+)?const unsigned char ([A-Za-z_][A-Za-z0-9_]*)\[\] = \{$`)
	lengthDeclRe = regexp.MustCompile(`^const unsigned int ([A-Za-z_][A-Za-z0-9_]*) = (\d+);$`)
)

// Document is the content recovered from a generated source.
type Document struct {
	Symbol       string
	LengthSymbol string
	Align        int
	Data         []byte
	// Length is the value of the length declaration.
	Length int
}

// Parse reads a source produced by Emit and recovers its declarations.
// The line width is not checked.
func Parse(r io.Reader) (*Document, error) {
	br := bufio.NewReader(r)
	doc := &Document{Data: []byte{}}

	const (
		stateHeader = iota
		stateValues
		stateLength
		stateDone
	)
	state := stateHeader
	lineNo := 0

	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if line == "" && err == io.EOF {
			break
		}
		lineNo++
		text := strings.TrimSpace(line)

		switch state {
		case stateHeader:
			if text == "" || strings.HasPrefix(text, "#include") {
				break
			}
			m := arrayDeclRe.FindStringSubmatch(text)
			if m == nil {
				return nil, fmt.Errorf("%w: line %d: expected array declaration, got %q", ErrMalformed, lineNo, text)
			}
			if m[1] != "" {
				a, perr := strconv.Atoi(m[1])
				if perr != nil {
					return nil, fmt.Errorf("%w: line %d: bad alignment %q", ErrMalformed, lineNo, m[1])
				}
				doc.Align = a
			}
			doc.Symbol = m[2]
			state = stateValues

		case stateValues:
			if text == "};" {
				state = stateLength
				break
			}
			for _, tok := range strings.Split(text, ",") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				v, perr := strconv.ParseUint(tok, 0, 8)
				if perr != nil {
					return nil, fmt.Errorf("%w: line %d: bad value %q", ErrMalformed, lineNo, tok)
				}
				doc.Data = append(doc.Data, byte(v))
			}

		case stateLength:
			if text == "" {
				break
			}
			m := lengthDeclRe.FindStringSubmatch(text)
			if m == nil {
				return nil, fmt.Errorf("%w: line %d: expected length declaration, got %q", ErrMalformed, lineNo, text)
			}
			n, perr := strconv.Atoi(m[2])
			if perr != nil {
				return nil, fmt.Errorf("%w: line %d: bad length %q", ErrMalformed, lineNo, m[2])
			}
			doc.LengthSymbol = m[1]
			doc.Length = n
			state = stateDone

		case stateDone:
			if text != "" {
				return nil, fmt.Errorf("%w: line %d: unexpected trailing content %q", ErrMalformed, lineNo, text)
			}
		}

		if err == io.EOF {
			break
		}
	}

	if state != stateDone {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrMalformed)
	}
	if doc.Length != len(doc.Data) {
		return doc, fmt.Errorf("%w: %s = %d, %s has %d elements", ErrLengthMismatch, doc.LengthSymbol, doc.Length, doc.Symbol, len(doc.Data))
	}
	return doc, nil
}
