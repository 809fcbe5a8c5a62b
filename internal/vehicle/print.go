package vehicle

import (
	"bufio"
	"fmt"
	"io"
)

// Print writes the current state. Spreadsheet mode is one line:
//
//	time sx sy sz lmx lmy lmz amx amy amz mass
//
// with the time suffixed by "s". The default mode is a multi-line report.
func (v *Vehicle) Print(w io.Writer, spreadsheet bool) error {
	bw := bufio.NewWriter(w)
	if spreadsheet {
		v.printSpreadsheet(bw)
	} else {
		v.printReport(bw)
	}
	return bw.Flush()
}

func (v *Vehicle) printSpreadsheet(w *bufio.Writer) {
	s := v.Snapshot()
	fmt.Fprintf(w, "%fs", s.Time)
	for _, x := range s.Position {
		fmt.Fprintf(w, " %f", x)
	}
	for _, x := range s.Momentum {
		fmt.Fprintf(w, " %f", x)
	}
	for _, x := range s.Angular {
		fmt.Fprintf(w, " %f", x)
	}
	fmt.Fprintf(w, " %f\n", s.Mass)
}

func (v *Vehicle) printReport(w *bufio.Writer) {
	s := v.Snapshot()
	rot := v.Orientation()

	fmt.Fprintf(w, "T=%fs (stage %d, %s):\n", s.Time, s.Stage, v.stage)
	fmt.Fprintf(w, "  position: %f %f %f\n", s.Position[0], s.Position[1], s.Position[2])
	fmt.Fprintln(w, "  rotation:")
	for i := 0; i < 3; i++ {
		r := rot.Row(i)
		fmt.Fprintf(w, "            %f %f %f\n", r[0], r[1], r[2])
	}
	fmt.Fprintf(w, "  linear momentum: %f %f %f\n", s.Momentum[0], s.Momentum[1], s.Momentum[2])
	fmt.Fprintf(w, "  angular momentum: %f %f %f\n", s.Angular[0], s.Angular[1], s.Angular[2])
	fmt.Fprintf(w, "  mass: %f\n", s.Mass)
	fmt.Fprintf(w, "  altitude: %f\n", s.Altitude)
}
