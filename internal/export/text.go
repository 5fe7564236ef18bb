package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/eugenenazirov/kerf-planner/internal/cutplan"
)

// WriteText prints plan as an aligned table, one line per stock segment.
func WriteText(w io.Writer, plan cutplan.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", planTitle(plan))
	fmt.Fprintf(tw, "stock %g, kerf %g, precision %d\n\n", plan.Params.Limit, plan.Params.Kerf, plan.Params.Precision)
	fmt.Fprintln(tw, "#\tPIECES\tUSED\tOFFCUT\t")

	for i, seg := range plan.Segments {
		cuts := make([]string, len(seg.Cuts))
		for j, cut := range seg.Cuts {
			cuts[j] = fmt.Sprintf("%g", cut.Length)
			if cut.Mark != "" {
				cuts[j] = cut.Mark + ":" + cuts[j]
			}
		}
		offcut := fmt.Sprintf("%g", round(seg.Stats.Offcut))
		if seg.Stats.Oversized {
			offcut = "OVERSIZED"
		}
		fmt.Fprintf(tw, "%d\t%s\t%g\t%s\t\n", i+1, strings.Join(cuts, " "), round(seg.Stats.Payload+seg.Stats.KerfLoss), offcut)
	}

	s := plan.Summary
	fmt.Fprintf(tw, "\nsegments: %d  waste: %g (kerf %g, offcut %g)\n",
		s.StockUsed, round(s.TotalWaste), round(s.TotalKerf), round(s.TotalOffcut))
	for _, warning := range plan.Warnings {
		fmt.Fprintf(tw, "warning: %s\n", warning)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	return nil
}
