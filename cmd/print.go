package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

func setNoColor(noColor bool) {
	color.NoColor = noColor
}

func printSuccess(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgGreen).Sprintf(msg, params...))
}

func printInfo(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgWhite).Sprintf(msg, params...))
}

func printWarning(w io.Writer, msg string, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgYellow).Sprintf(msg, params...))
}

func printErr(w io.Writer, err error, params ...interface{}) {
	fmt.Fprintln(w, color.New(color.FgRed).Sprintf(err.Error(), params...))
}
