package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// WriteCSV writes the response table of s as CSV. Every cell is quoted and
// inner quotes are doubled, so values with commas, quotes or newlines read
// back unchanged.
func WriteCSV(w io.Writer, s *model.Survey, records []*model.ResponseRecord) error {
	t := Build(s, records)
	bw := bufio.NewWriter(w)

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Header
	}
	if err := writeRecord(bw, header); err != nil {
		return err
	}

	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			cells[i] = row[c.Field]
		}
		if err := writeRecord(bw, cells); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, cells []string) error {
	for i, cell := range cells {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(cell, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}

// Filename is the download name of a survey export.
func Filename(s *model.Survey) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s.Title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "_"):
			b.WriteByte('_')
		}
	}
	name := strings.TrimSuffix(b.String(), "_")
	if name == "" {
		name = "survey_" + s.ID
	}
	return name + "_responses.csv"
}
