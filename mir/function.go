package mir

import "fmt"

// SourceLocation is a position in the source code the machine IR was
// generated from. Line and Column are 1-based; zero means unknown.
type SourceLocation struct {
	File         string
	Line, Column uint32
}

// String implements fmt.Stringer.
func (l SourceLocation) String() string {
	file := l.File
	if file == "" {
		file = "<unknown>"
	}
	switch {
	case l.Line == 0:
		return file
	case l.Column == 0:
		return fmt.Sprintf("%s:%d", file, l.Line)
	default:
		return fmt.Sprintf("%s:%d:%d", file, l.Line, l.Column)
	}
}

// Function is the instruction stream of one function body.
type Function struct {
	// Name is the symbol name of the function, used only in diagnostics.
	Name string
	// Source is the location of the function declaration.
	Source SourceLocation
	// Insts is the instruction stream. Indices into it are stable and are
	// what branch targets refer to.
	Insts []Inst
}

// LocationOf returns the source location of the instruction at index i: the
// nearest DbgLine marker at or before i, or the function declaration if
// there is none.
func (f *Function) LocationOf(i int) SourceLocation {
	if i >= len(f.Insts) {
		i = len(f.Insts) - 1
	}
	for ; i >= 0; i-- {
		if l, ok := f.Insts[i].(DbgLine); ok {
			return SourceLocation{File: f.Source.File, Line: l.Line, Column: l.Column}
		}
	}
	return f.Source
}
