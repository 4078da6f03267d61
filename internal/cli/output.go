package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
)

func success(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, green.Sprint("✓")+" "+format+"\n", a...)
}

func info(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, cyan.Sprint("→")+" "+format+"\n", a...)
}

func warning(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, yellow.Sprint("⚠")+" "+format+"\n", a...)
}

func failure(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, red.Sprint("✗")+" "+format+"\n", a...)
}
