package console

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _              _  __ _", "#818cf8"},
	{" | |_ ___   ___ | |/ _| | _____      __", "#a78bfa"},
	{" | __/ _ \\ / _ \\| | |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
	{" | || (_) | (_) | |  _| | (_) \\ V  V /", "#e879f9"},
	{"  \\__\\___/ \\___/|_|_| |_|\\___/ \\_/\\_/", "#f472b6"},
}

// PrintBanner writes the toolflow banner to w followed by version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(out)
	for _, l := range bannerLines {
		fmt.Fprintln(out, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintf(out, "%s\n\n", out.String("  v"+version).Faint())
}
