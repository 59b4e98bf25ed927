package emitter

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// DefaultSymbol is the array identifier the firmware links against.
	DefaultSymbol = "g_model"
	// DefaultAlign is the alignas() hint required by the TFLite model loader.
	DefaultAlign = 16
	// DefaultPerLine is the number of values written per line.
	DefaultPerLine = 12
	// LengthSuffix is appended to the array identifier to name the length declaration.
	LengthSuffix = "_len"
)

// ErrInvalidOptions is returned when Options fail validation.
var ErrInvalidOptions = errors.New("invalid emitter options")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options controls the shape of the generated source.
type Options struct {
	// Symbol is the identifier of the byte array. Defaults to DefaultSymbol.
	Symbol string
	// LengthSymbol is the identifier of the length declaration.
	// Defaults to Symbol + LengthSuffix.
	LengthSymbol string
	// Align is the value of the alignas() hint. Zero omits the hint, so callers
	// wanting the standard output should start from DefaultOptions.
	Align int
	// PerLine is the number of values per line. Defaults to DefaultPerLine.
	PerLine int
}

// DefaultOptions returns the options that reproduce the standard g_model source.
func DefaultOptions() Options {
	return Options{
		Symbol:       DefaultSymbol,
		LengthSymbol: DefaultSymbol + LengthSuffix,
		Align:        DefaultAlign,
		PerLine:      DefaultPerLine,
	}
}

// withDefaults fills the empty identifier and line-width fields.
func (o Options) withDefaults() Options {
	if o.Symbol == "" {
		o.Symbol = DefaultSymbol
	}
	if o.LengthSymbol == "" {
		o.LengthSymbol = o.Symbol + LengthSuffix
	}
	if o.PerLine == 0 {
		o.PerLine = DefaultPerLine
	}
	return o
}

// Validate checks that the options describe compilable declarations.
// Empty fields are validated after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()

	if !identRe.MatchString(o.Symbol) {
		return fmt.Errorf("%w: symbol %q is not a valid C identifier", ErrInvalidOptions, o.Symbol)
	}
	if !identRe.MatchString(o.LengthSymbol) {
		return fmt.Errorf("%w: length symbol %q is not a valid C identifier", ErrInvalidOptions, o.LengthSymbol)
	}
	if o.Symbol == o.LengthSymbol {
		return fmt.Errorf("%w: symbol and length symbol are both %q", ErrInvalidOptions, o.Symbol)
	}
	if o.Align < 0 || o.Align&(o.Align-1) != 0 {
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidOptions, o.Align)
	}
	if o.PerLine < 1 {
		return fmt.Errorf("%w: values per line must be at least 1, got %d", ErrInvalidOptions, o.PerLine)
	}
	return nil
}

// SymbolFromPath derives an array identifier from a file name, e.g.
// "assets/wake-word.v2.tflite" becomes "g_wake_word_v2".
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	var sb strings.Builder
	sb.WriteString("g_")
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
