package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/coprcheck/coprcheck/pkg/types"
)

var (
	colorOK   = text.Colors{text.FgGreen}
	colorFail = text.Colors{text.Bold, text.FgRed}

	colorPackage = text.Colors{text.Bold, text.FgWhite}
	colorCheck   = text.Colors{text.FgYellow}
	colorCode    = text.Colors{text.Bold, text.FgRed}
	colorDiag    = text.Colors{text.FgWhite}
)

// RunningTask prints "Running <name>..." to w, runs fn and closes the line with its status.
// The error of fn is returned untouched.
func RunningTask(w io.Writer, name string, fn func() error) error {
	fmt.Fprintf(w, "Running %s...\t", name)
	if err := fn(); err != nil {
		fmt.Fprintf(w, "[%s]\n", colorFail.Sprint("FAIL"))
		return err
	}
	fmt.Fprintf(w, "[%s]\n", colorOK.Sprint(" OK "))
	return nil
}

// ReportFailed prints the packages of r that have findings, one indentation level per
// package, check, code and message.
func ReportFailed(w io.Writer, r types.Report) {
	fmt.Fprintln(w, "Failed packages:")
	for _, p := range r.Packages {
		if len(p.Checks) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", colorPackage.Sprint(p.NVR))
		for _, c := range p.Checks {
			fmt.Fprintf(w, "\t%s:\n", colorCheck.Sprint(c.Name))
			for _, cd := range c.Codes {
				fmt.Fprintf(w, "\t\t%s:\n", colorCode.Sprint(cd.Code))
				for _, m := range cd.Messages {
					fmt.Fprintf(w, "\t\t\t- %s\n", colorDiag.Sprint(m))
				}
			}
		}
	}
}

// BuildsTable renders the artifacts as a table.
func BuildsTable(w io.Writer, artifacts []types.BuildArtifact) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Build", "Chroot", "Distribution", "URL"})
	for _, a := range artifacts {
		t.AppendRow(table.Row{strconv.Itoa(a.BuildID), a.Chroot.String(), a.Chroot.Distribution(), a.URL})
	}
	t.AppendFooter(table.Row{"Total", strconv.Itoa(len(artifacts)), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, Align: text.AlignRight}})
	t.Render()
}
