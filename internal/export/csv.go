package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/hackhub/backend/internal/models"
)

// WriteCSV writes the header and one line per registration.
func WriteCSV(w io.Writer, regs []models.Registration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, reg := range regs {
		if err := cw.Write(Row(reg)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
