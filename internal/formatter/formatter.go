// package formatter renders verification reports, run outcomes and run history as plain text, Markdown or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/gmx/internal/models"
	"github.com/desertthunder/gmx/internal/reconcile"
	"github.com/desertthunder/gmx/internal/shared"
	"github.com/desertthunder/gmx/internal/tasks"
)

// Format selects an output rendering.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
)

// ParseFormat accepts a format name or its usual file extension. Empty means [Text].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Extension is the file extension written for f.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	}
	return ".txt"
}

// Value renders a metadata value for display. Strings are quoted so empty and missing values stay distinguishable.
func Value(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}

// Duration rounds d for display.
func Duration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(time.Millisecond).String()
	}
	return d.String()
}

// Size renders a byte count, e.g. "4.2 MiB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Ago renders t relative to now, e.g. "3 minutes ago".
func Ago(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "FAIL"
}

// RenderReport renders a comparison report in format f.
func RenderReport(r *reconcile.ComparisonReport, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return ReportToMarkdown(r), nil
	case CSV:
		return ReportToCSV(r)
	}
	return ReportToText(r), nil
}

// ReportToText lists every compared field with its category, relation and values.
//
// Unasserted fields only show their observed value.
func ReportToText(r *reconcile.ComparisonReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Track %s: %s after %d attempt(s) in %s\n", r.EntityID, reportVerdict(r), r.Attempts, Duration(r.Elapsed)))
	if r.Failure != nil {
		buf.WriteString(fmt.Sprintf("  %s\n", r.Failure.Error()))
	}
	if r.Vanished || len(r.Fields) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("\n")
	for _, fc := range r.Fields {
		if fc.Relation == reconcile.Unasserted {
			buf.WriteString(fmt.Sprintf("   %-18s %-9s %-10s %s\n", fc.Field, fc.Category, fc.Relation, Value(fc.Observed)))
			continue
		}
		mark := " "
		if !fc.Satisfied {
			mark = "!"
		}
		buf.WriteString(fmt.Sprintf(" %s %-18s %-9s %-10s expected %s, observed %s\n",
			mark, fc.Field, fc.Category, fc.Relation, Value(fc.Expected), observed(fc)))
	}
	return buf.Bytes()
}

// ReportToMarkdown renders the report as a Markdown table with only asserted fields.
func ReportToMarkdown(r *reconcile.ComparisonReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("### Track `%s`: %s\n\n", r.EntityID, reportVerdict(r)))
	buf.WriteString(fmt.Sprintf("**Attempts**: %d\n", r.Attempts))
	buf.WriteString(fmt.Sprintf("**Elapsed**: %s\n\n", Duration(r.Elapsed)))
	if r.Failure != nil {
		buf.WriteString(fmt.Sprintf("> %s\n\n", r.Failure.Error()))
	}
	if r.Vanished || len(r.Fields) == 0 {
		return buf.Bytes()
	}

	buf.WriteString("| Field | Category | Relation | Before | Expected | Observed | |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, fc := range r.Fields {
		if fc.Relation == reconcile.Unasserted {
			continue
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			fc.Field, fc.Category, fc.Relation, mdCell(Value(fc.Before)), mdCell(Value(fc.Expected)),
			mdCell(observed(fc)), status(fc.Satisfied)))
	}
	return buf.Bytes()
}

// ReportToCSV writes one row per field with columns: Field, Category, Relation, Before, Expected, Observed, Present, Satisfied
func ReportToCSV(r *reconcile.ComparisonReport) ([]byte, error) {
	rows := [][]string{{"Field", "Category", "Relation", "Before", "Expected", "Observed", "Present", "Satisfied"}}
	for _, fc := range r.Fields {
		rows = append(rows, []string{
			fc.Field,
			fc.Category.String(),
			fc.Relation.String(),
			Value(fc.Before),
			Value(fc.Expected),
			Value(fc.Observed),
			strconv.FormatBool(fc.Present),
			strconv.FormatBool(fc.Satisfied),
		})
	}
	return writeCSV(rows)
}

func reportVerdict(r *reconcile.ComparisonReport) string {
	switch {
	case r.Vanished:
		return "vanished"
	case r.Satisfied():
		return "verified"
	}
	return fmt.Sprintf("%d mismatch(es)", len(r.Mismatches()))
}

func observed(fc reconcile.FieldComparison) string {
	if !fc.Present {
		return "(absent)"
	}
	return Value(fc.Observed)
}

func mdCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderOutcome renders a run outcome in format f. Markdown and text include any comparison reports.
func RenderOutcome(o *tasks.Outcome, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return OutcomeToMarkdown(o), nil
	case CSV:
		return OutcomeToCSV(o)
	}
	return OutcomeToText(o), nil
}

// OutcomeToText lists executed steps, skipped steps and leftovers of one run.
func OutcomeToText(o *tasks.Outcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s: %s (%d/%d steps) in %s\n", o.Sequence, outcomeVerdict(o), o.Passed(), o.Total, Duration(o.Duration())))
	for _, s := range o.Steps {
		buf.WriteString(fmt.Sprintf("  [%-4s] %-24s %s\n", status(s.OK()), s.Label(), Duration(s.Duration)))
		if !s.OK() {
			buf.WriteString(fmt.Sprintf("         %s\n", s.Failure.Error()))
		}
	}
	for _, label := range o.Skipped {
		buf.WriteString(fmt.Sprintf("  [skip] %s\n", label))
	}

	if len(o.Leftovers) > 0 {
		buf.WriteString("\nLeft on the service:\n")
		for _, e := range o.Leftovers {
			buf.WriteString(fmt.Sprintf("  %s %s %q\n", e.Kind, e.ID, e.Name))
		}
	}

	for _, r := range o.Reports {
		buf.WriteString("\n")
		buf.Write(ReportToText(r))
	}
	return buf.Bytes()
}

// OutcomeToMarkdown renders a run as a Markdown section
func OutcomeToMarkdown(o *tasks.Outcome) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("## %s\n\n", o.Sequence))
	buf.WriteString(fmt.Sprintf("**Run**: `%s`\n", o.RunID))
	buf.WriteString(fmt.Sprintf("**Result**: %s\n", outcomeVerdict(o)))
	buf.WriteString(fmt.Sprintf("**Steps**: %d/%d\n", o.Passed(), o.Total))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", Duration(o.Duration())))

	buf.WriteString("| Step | Result | Duration | Detail |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, s := range o.Steps {
		detail := ""
		if !s.OK() {
			detail = mdCell(s.Failure.Error())
		}
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", s.Label(), status(s.OK()), Duration(s.Duration), detail))
	}
	for _, label := range o.Skipped {
		buf.WriteString(fmt.Sprintf("| %s | skipped | | |\n", label))
	}

	if len(o.Leftovers) > 0 {
		buf.WriteString("\n### Leftovers\n\n")
		for _, e := range o.Leftovers {
			buf.WriteString(fmt.Sprintf("- %s `%s` %s\n", e.Kind, e.ID, e.Name))
		}
	}

	for _, r := range o.Reports {
		buf.WriteString("\n")
		buf.Write(ReportToMarkdown(r))
	}
	return buf.Bytes()
}

// OutcomeToCSV writes one row per step with columns: Position, Step, Status, Kind, Duration, Detail
func OutcomeToCSV(o *tasks.Outcome) ([]byte, error) {
	rows := [][]string{{"Position", "Step", "Status", "Kind", "Duration", "Detail"}}
	for _, s := range o.Steps {
		row := []string{strconv.Itoa(s.Position), s.Label(), models.StepSucceeded, "", strconv.FormatInt(s.Duration.Milliseconds(), 10), ""}
		if !s.OK() {
			row[2], row[3], row[5] = models.StepFailed, s.Failure.Kind.String(), s.Failure.Error()
		}
		rows = append(rows, row)
	}
	for i, label := range o.Skipped {
		rows = append(rows, []string{strconv.Itoa(len(o.Steps) + i + 1), label, models.StepSkipped, "", "0", ""})
	}
	return writeCSV(rows)
}

func outcomeVerdict(o *tasks.Outcome) string {
	if o.Succeeded() {
		return "passed"
	}
	if f := o.Failed(); f != nil {
		return fmt.Sprintf("failed at %s (%s)", f.Label(), f.Failure.Kind)
	}
	return "incomplete"
}

// BatchToText summarizes a batch and lists each outcome.
func BatchToText(res *tasks.BatchResult) []byte {
	var buf bytes.Buffer
	for i, o := range res.Outcomes {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.Write(OutcomeToText(o))
	}
	buf.WriteString(fmt.Sprintf("\n%d passed, %d failed\n", res.Succeeded, res.Failed))
	return buf.Bytes()
}

// RenderBatch renders every outcome of a batch in format f.
func RenderBatch(res *tasks.BatchResult, f Format) ([]byte, error) {
	switch f {
	case Markdown:
		return BatchToMarkdown(res), nil
	case CSV:
		return BatchToCSV(res)
	}
	return BatchToText(res), nil
}

func BatchToMarkdown(res *tasks.BatchResult) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Scenario runs\n\n")
	buf.WriteString(fmt.Sprintf("**Passed**: %d\n", res.Succeeded))
	buf.WriteString(fmt.Sprintf("**Failed**: %d\n", res.Failed))
	for _, o := range res.Outcomes {
		buf.WriteString("\n")
		buf.Write(OutcomeToMarkdown(o))
	}
	return buf.Bytes()
}

// BatchToCSV is [OutcomeToCSV] for several runs, with a leading Sequence column.
func BatchToCSV(res *tasks.BatchResult) ([]byte, error) {
	rows := [][]string{{"Sequence", "Position", "Step", "Status", "Kind", "Duration", "Detail"}}
	for _, o := range res.Outcomes {
		for _, s := range o.Steps {
			row := []string{o.Sequence, strconv.Itoa(s.Position), s.Label(), models.StepSucceeded, "", strconv.FormatInt(s.Duration.Milliseconds(), 10), ""}
			if !s.OK() {
				row[3], row[4], row[6] = models.StepFailed, s.Failure.Kind.String(), s.Failure.Error()
			}
			rows = append(rows, row)
		}
		for i, label := range o.Skipped {
			rows = append(rows, []string{o.Sequence, strconv.Itoa(len(o.Steps) + i + 1), label, models.StepSkipped, "", "0", ""})
		}
	}
	return writeCSV(rows)
}

// RunsToText lists recorded runs, newest first as given.
func RunsToText(runs []*models.RunRecord, now time.Time) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes()
	}
	for _, r := range runs {
		when := "never started"
		if r.StartedAt() != nil {
			when = Ago(*r.StartedAt(), now)
		}
		line := fmt.Sprintf("%s  %-20s %-9s %d/%d  %-14s %s", r.ID(), r.Name(), r.Status(), r.StepsSucceeded(), r.StepsTotal(), Duration(r.Duration()), when)
		if r.FailedStep() != "" {
			line += fmt.Sprintf("  at %s (%s)", r.FailedStep(), r.FailureKind())
		}
		buf.WriteString(line + "\n")
	}
	return buf.Bytes()
}

// RunToText renders one recorded run with its steps and the snapshots captured during it.
func RunToText(run *models.RunRecord, snapshots []*models.SnapshotRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", run.ID()))
	buf.WriteString(fmt.Sprintf("Sequence: %s\n", run.Name()))
	buf.WriteString(fmt.Sprintf("Status: %s (%d/%d steps)\n", run.Status(), run.StepsSucceeded(), run.StepsTotal()))
	if run.StartedAt() != nil {
		buf.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt().Format(time.RFC3339)))
	}
	buf.WriteString(fmt.Sprintf("Duration: %s\n", Duration(run.Duration())))
	if run.ErrorMessage() != "" {
		buf.WriteString(fmt.Sprintf("Error: %s\n", run.ErrorMessage()))
	}

	if steps := run.Steps(); len(steps) > 0 {
		buf.WriteString("\nSteps:\n")
		for _, s := range steps {
			buf.WriteString(fmt.Sprintf("  %d. %-24s %-9s %s\n", s.Position, s.Order+"_"+s.Name, s.Status, Duration(s.Duration)))
			if s.Detail != "" {
				buf.WriteString(fmt.Sprintf("     %s\n", s.Detail))
			}
		}
	}

	if len(snapshots) > 0 {
		buf.WriteString("\nSnapshots:\n")
		for _, s := range snapshots {
			buf.WriteString(fmt.Sprintf("  %-9s track %s, %d fields\n", s.Label(), s.TrackID(), len(s.Body())))
		}
	}
	return buf.Bytes()
}

// LeftoversToText lists unresolved leftovers.
func LeftoversToText(leftovers []*models.Leftover, now time.Time) []byte {
	var buf bytes.Buffer
	if len(leftovers) == 0 {
		buf.WriteString("Nothing left behind.\n")
		return buf.Bytes()
	}
	for _, l := range leftovers {
		buf.WriteString(fmt.Sprintf("%-8s %-24s %-32q run %s, %s\n", l.Kind(), l.ServiceID(), l.Name(), l.RunID(), Ago(l.CreatedAt(), now)))
	}
	return buf.Bytes()
}

// TracksToText lists tracks one per line.
func TracksToText(tracks []models.TrackRecord) []byte {
	var buf bytes.Buffer
	for i, t := range tracks {
		album := ""
		if a := t.Text("album"); a != "" {
			album = fmt.Sprintf(" (%s)", a)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, t.Text("artist"), t.Text("name"), album, t.ID()))
	}
	return buf.Bytes()
}

// TrackToText lists every field of a record in name order.
func TrackToText(t models.TrackRecord) []byte {
	var buf bytes.Buffer
	for _, k := range t.Keys() {
		buf.WriteString(fmt.Sprintf("%-18s %s\n", k, Value(t[k])))
	}
	return buf.Bytes()
}

// TracksToCSV converts tracks to CSV with the given columns, defaulting to ID, Name, Artist, Album
func TracksToCSV(tracks []models.TrackRecord, fields ...string) ([]byte, error) {
	if len(fields) == 0 {
		fields = []string{"id", "name", "artist", "album"}
	}
	rows := [][]string{fields}
	for _, t := range tracks {
		row := make([]string, len(fields))
		for i, f := range fields {
			if v, ok := t[f]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExport writes data to path, creating parent directories. An empty path defaults to name plus f's extension.
func WriteExport(data []byte, path, name string, f Format) (string, error) {
	if path == "" {
		path = name + f.Extension()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
