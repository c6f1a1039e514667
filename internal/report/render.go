// Package report renders a run's statistics as the plain-text Mesonet
// summary.
package report

import (
	"bytes"
	"embed"
	"errors"
	"io"
	"io/fs"
	"strings"
	"text/template"

	"mesostats/internal/mesonet"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const (
	reportTemplate = "report.tmpl"
	ruleWidth      = 57
)

var reportTmpl *template.Template

// loadTemplatesFromFS parses the report templates found in dir.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.tmpl")
	if err != nil {
		return err
	}
	if tmpl.Lookup(reportTemplate) == nil {
		return errors.New("report template " + reportTemplate + " not found")
	}
	reportTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call it once during startup.
func LoadTemplates() error {
	return loadTemplatesFromFS(templatesFS, "templates")
}

type line struct {
	Kind    string
	Label   string
	Value   float64
	Unit    string
	Station string
}

type section struct {
	Lines []line
}

type reportData struct {
	Rule     string
	Header   string
	Sections []section
}

// lineOrder is the order of the three lines within a section.
var lineOrder = []mesonet.Kind{mesonet.Maximum, mesonet.Minimum, mesonet.Average}

func newReportData(s *mesonet.Summary) reportData {
	t := s.Timestamp().Time()
	data := reportData{
		Rule:   strings.Repeat("=", ruleWidth),
		Header: t.Format("2006-01-02 15:04:05"),
	}
	for _, p := range s.Parameters() {
		var sec section
		for _, k := range lineOrder {
			r, _ := s.Get(p, k)
			sec.Lines = append(sec.Lines, line{
				Kind:    k.Label(),
				Label:   p.Label(),
				Value:   r.Value(),
				Unit:    p.Unit(),
				Station: r.StationID(),
			})
		}
		data.Sections = append(data.Sections, sec)
	}
	return data
}

// Render writes the report for s to w.
func Render(w io.Writer, s *mesonet.Summary) error {
	if reportTmpl == nil {
		return errors.New("report template not loaded: call report.LoadTemplates during startup")
	}
	if s == nil {
		return errors.New("report: nil summary")
	}
	return reportTmpl.ExecuteTemplate(w, reportTemplate, newReportData(s))
}

// String renders s into a string.
func String(s *mesonet.Summary) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
