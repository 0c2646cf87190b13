// Package report renders design runs: a text summary per stage, PNG charts
// of stage histories and a completion callback.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/runstore"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
)

// WriteSummary writes an aligned table of every stage that ran followed by
// the accepted design.
func WriteSummary(w io.Writer, rep *sizing.DesignReport) error {
	if rep == nil {
		return fmt.Errorf("nil report")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "session:\t%s\n", rep.SessionID)
	fmt.Fprintf(tw, "status:\t%s\n", rep.Status)
	fmt.Fprintf(tw, "evaluations:\t%s\n", humanize.Comma(int64(rep.Evaluations)))
	if !rep.Started.IsZero() && !rep.Finished.IsZero() {
		fmt.Fprintf(tw, "elapsed:\t%s\n", rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "STAGE\tSTATUS\tITER\tRESULT")
	if rep.Feed != nil {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sizing.StageFeed, "written", 0, formatValues(rep.Feed.Inputs))
	}
	if r := rep.SolventSweep; r != nil {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Stage, r.Status, r.Evaluations, sweepResult(r, rep.SolventSeed, "seed"))
	}
	if r := rep.HeightSweep; r != nil {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Stage, r.Status, r.Evaluations, sweepResult(r, rep.HeightSeed, "seed"))
	}
	for _, r := range []*sizing.SolveResult{rep.Dual, rep.Height} {
		writeSolve(tw, r)
	}
	for _, r := range rep.Topology {
		writeStep(tw, sizing.StageTopology, r)
	}
	writeSolve(tw, rep.Recycle)
	for _, r := range rep.Finalize {
		writeStep(tw, sizing.StageFinalize, r)
	}

	if len(rep.Design) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "VARIABLE\tVALUE\tUNIT\tPATH")
		for _, v := range rep.Design {
			fmt.Fprintf(tw, "%s\t%.4f\t%s\t%s\n", v.Name, v.Value, v.Unit, v.Path)
		}
	}
	return tw.Flush()
}

func sweepResult(r *sizing.SweepResult, seed float64, label string) string {
	out := fmt.Sprintf("hit=%.4g metric=%.4g", r.Candidate, r.Metric)
	if n := r.NotConverged.Len(); n > 0 {
		out += fmt.Sprintf(" non_converged=%d", n)
	}
	if r.Status.Usable() {
		out += fmt.Sprintf(" %s=%.4g", label, seed)
	}
	return out
}

func writeSolve(w io.Writer, r *sizing.SolveResult) {
	if r == nil {
		return
	}
	vals := make(map[string]float64, len(r.Variables)+len(r.Metrics))
	for _, v := range r.Variables {
		vals[v.Name] = v.Value
	}
	for k, v := range r.Metrics {
		vals[k] = v
	}
	result := formatValues(vals)
	if r.Cycle > 0 {
		result += fmt.Sprintf(" cycle=%d", r.Cycle)
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.Stage, r.Status, r.Iterations, result)
}

func writeStep(w io.Writer, stage string, r sizing.StepResult) {
	status := "applied"
	iter := 0
	if r.Evaluated {
		status = string(r.Status)
		iter = 1
	}
	fmt.Fprintf(w, "%s/%s\t%s\t%d\t\n", stage, r.Name, status, iter)
}

// WriteHistory writes one line per stored record.
func WriteHistory(w io.Writer, records []runstore.StoredRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "STAGE\tITER\tSTATUS\tINPUTS\tMETRICS\n")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", r.Stage, r.Iteration, r.Status, formatValues(r.Inputs), formatValues(r.Metrics))
	}
	return tw.Flush()
}

func formatValues(m map[string]float64) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%.4g", k, m[k])
	}
	return out
}
