// Package export renders duty plans for operators and downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lineauction/core/duty"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Document is the JSON and YAML payload: the plan plus its summary.
type Document struct {
	Plan    duty.Plan    `json:"plan" yaml:"plan"`
	Summary duty.Summary `json:"summary" yaml:"summary"`
}

// NewDocument wraps p with its summary.
func NewDocument(p duty.Plan) Document {
	return Document{Plan: p, Summary: duty.Summarize(p)}
}

// Write renders p to w in the named format.
func Write(w io.Writer, format string, p duty.Plan) error {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return WriteJSON(w, p)
	case FormatYAML, "yml":
		return WriteYAML(w, p)
	case FormatCSV:
		return WriteCSV(w, p)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// WriteJSON writes the plan document to w as indented JSON.
func WriteJSON(w io.Writer, p duty.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(p))
}

// WriteYAML writes the plan document to w as YAML.
func WriteYAML(w io.Writer, p duty.Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(p)); err != nil {
		return err
	}
	return enc.Close()
}

// WriteCSV writes one row per duty. Departures and breaks are joined with
// spaces, breaks rendered as start-end.
func WriteCSV(w io.Writer, p duty.Plan) error {
	cw := csv.NewWriter(w)
	header := []string{"block", "duty_start", "duty_end", "departures", "breaks", "assigned_vehicle"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range p.Duties {
		breaks := make([]string, len(d.Breaks))
		for i, b := range d.Breaks {
			breaks[i] = b.Start.String() + "-" + b.End.String()
		}
		rec := []string{
			strconv.Itoa(d.Block),
			d.Start.String(),
			d.End.String(),
			strings.Join(duty.FormatSlots(d.Departures), " "),
			strings.Join(breaks, " "),
			d.Vehicle,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
