package spectrum

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// EncodeCSV writes a spectrum as two-column (bin, count) CSV with no header,
// the same table layout the acquisition scripts have always produced
func EncodeCSV(w io.Writer, s Spectrum) error {
	cw := csv.NewWriter(w)
	for i := range s.Bins {
		rec := []string{
			strconv.FormatFloat(s.Bins[i], 'g', -1, 64),
			strconv.Itoa(s.Counts[i]),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes a spectrum to a file, see EncodeCSV
func WriteCSV(path string, s Spectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeCSV(f, s)
}
