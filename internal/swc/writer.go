package swc

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"neurite/internal/model"
)

// WriteProcessed emits records in the standard seven-field layout with the
// leading comments of the source stripped. Records are written as given;
// callers that want a normalized file pass the topologically reordered,
// sequentially renumbered records produced by circuit.Normalize.
func WriteProcessed(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, "# Processed SWC file"); err != nil {
		return err
	}
	for _, rec := range records {
		kind := rec.RawKind
		if rec.Kind != model.KindCustom {
			kind = int(rec.Kind)
		}
		_, err := fmt.Fprintf(bw, "%d %d %.2f %.2f %.2f %g %d\n",
			rec.ID, kind, rec.X, rec.Y, rec.Z, rec.Radius, rec.ParentID)
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteProcessedFile writes records to the file at path.
func WriteProcessedFile(path string, records []model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteProcessed(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
