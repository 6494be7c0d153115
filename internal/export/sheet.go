package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

const maxSheetName = 31

// Stats counts the sheets written or populated per family.
type Stats map[string]int

func (s Stats) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// SheetName makes tag a legal Excel sheet name: forbidden characters become
// '_' and the result is cut to 31 runes.
func SheetName(tag string) string {
	r := strings.NewReplacer("[", "_", "]", "_", ":", "_", "*", "_", "?", "_", "/", "_", `\`, "_")
	name := strings.Trim(r.Replace(strings.TrimSpace(tag)), "'")
	if name == "" {
		name = "Sheet"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}

// uniqueName returns a sheet name not yet in used (case-insensitive),
// appending " (n)" inside the length limit when needed.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetName {
			base = base[:maxSheetName-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// cell renders an optional value; nil is an empty cell.
func cell[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}

func text(p *string) string {
	return strings.TrimSpace(hvac.Deref(p))
}

// sheet writes label/value layouts onto one worksheet.
type sheet struct {
	f       *excelize.File
	name    string
	bold    int
	section int
	err     error
}

func (s *sheet) set(col, row int, v any) {
	if s.err != nil {
		return
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellValue(s.name, ref, v)
}

func (s *sheet) style(col, row, style int) {
	if s.err != nil {
		return
	}
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(s.name, ref, ref, style)
}

func (s *sheet) label(col, row int, v any) {
	s.set(col, row, v)
	s.style(col, row, s.bold)
}

func (s *sheet) widths(widths map[string]float64) {
	for col, w := range widths {
		if s.err != nil {
			return
		}
		s.err = s.f.SetColWidth(s.name, col, col, w)
	}
}
