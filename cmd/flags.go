package cmd

import (
	"github.com/qaartru2266-jpg/hxc143/internal/emitter"
	"github.com/spf13/pflag"
)

// emitterFlags holds the flags shaping the generated declarations.
// The defaults reproduce the standard g_model source.
type emitterFlags struct {
	symbol       string
	lengthSymbol string
	align        int
	perLine      int
}

func (f *emitterFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.symbol, "symbol", emitter.DefaultSymbol, "Identifier of the byte array")
	fs.StringVar(&f.lengthSymbol, "length-symbol", "", "Identifier of the length declaration (default <symbol>_len)")
	fs.IntVar(&f.align, "align", emitter.DefaultAlign, "alignas() value for the array; 0 omits it")
	fs.IntVar(&f.perLine, "per-line", emitter.DefaultPerLine, "Number of values per line")
}

func (f *emitterFlags) options() emitter.Options {
	return emitter.Options{
		Symbol:       f.symbol,
		LengthSymbol: f.lengthSymbol,
		Align:        f.align,
		PerLine:      f.perLine,
	}
}
