package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Ucell/log-analyzer/model"
)

// Write renders the summary of one scenario.
func Write(w io.Writer, label string, s model.Summary) error {
	_, err := fmt.Fprintf(w,
		"=== %s ===\n"+
			"Total requests : %d\n"+
			"Errors (status>=500): %d (%.2f %%)\n"+
			"rt avg : %.4f s\n"+
			"rt p50 / p90 / p99 : %.4f / %.4f / %.4f s\n",
		label,
		s.Total,
		s.Errors, s.ErrorPct,
		s.Avg,
		s.P50, s.P90, s.P99,
	)
	return err
}

type row struct {
	name    string
	format  string
	base    float64
	current float64
}

// WriteComparison renders current against baseline, one metric per row.
func WriteComparison(w io.Writer, baseline, current model.Run) error {
	b, c := baseline.Summary, current.Summary
	rows := []row{
		{"total", "%.0f", float64(b.Total), float64(c.Total)},
		{"errors", "%.0f", float64(b.Errors), float64(c.Errors)},
		{"error %", "%.2f", b.ErrorPct, c.ErrorPct},
		{"rt avg (s)", "%.4f", b.Avg, c.Avg},
		{"rt p50 (s)", "%.4f", b.P50, c.P50},
		{"rt p90 (s)", "%.4f", b.P90, c.P90},
		{"rt p99 (s)", "%.4f", b.P99, c.P99},
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== %s vs %s ===\n", current.Label, baseline.Label)
	fmt.Fprintf(&sb, "%-12s %12s %12s %12s %9s\n", "metric", baseline.Label, current.Label, "delta", "change")
	for _, r := range rows {
		delta := r.current - r.base
		fmt.Fprintf(&sb, "%-12s %12s %12s %12s %9s\n",
			r.name,
			fmt.Sprintf(r.format, r.base),
			fmt.Sprintf(r.format, r.current),
			fmt.Sprintf("%+"+r.format[1:], delta),
			change(r.base, delta),
		)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func change(base, delta float64) string {
	if base == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", delta/base*100)
}
