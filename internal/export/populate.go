package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// Template cell maps. Rows are fixed by the customer template; each family
// writes into a single data column.
const (
	vavColumn    = "K"
	fanColumn    = "N"
	heaterColumn = "K"
	reheatRow    = 20
)

// HeaterSheetMarker identifies template sheets holding two heater blocks.
const HeaterSheetMarker = "Electric Duct Heater"

var heaterBlocks = [2]struct{ tag, location, cfm, voltage, kw int }{
	{tag: 8, location: 9, cfm: 14, voltage: 17, kw: 19},
	{tag: 24, location: 25, cfm: 30, voltage: 33, kw: 35},
}

// PopulateStats counts populated records per family and lists the tags
// that had no matching sheet.
type PopulateStats struct {
	Stats
	Missing []string
}

// TemplatePopulator fills a customer workbook in place of generating one.
type TemplatePopulator struct {
	logger *slog.Logger
}

func NewTemplatePopulator(logger *slog.Logger) *TemplatePopulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplatePopulator{logger: logger}
}

// Populate writes ds into a copy of template and returns the new workbook.
// VAV and fan records go to the sheet named after their tag; heaters fill
// the "Electric Duct Heater" sheets two per sheet, in workbook order.
// Empty values never overwrite template content.
func (p *TemplatePopulator) Populate(template io.Reader, ds hvac.Dataset) (*bytes.Buffer, PopulateStats, error) {
	start := time.Now()
	f, err := excelize.OpenReader(template)
	if err != nil {
		return nil, PopulateStats{}, common.InputError("open template workbook", err)
	}
	defer f.Close()

	t := &templateBook{f: f, sheets: f.GetSheetList(), merged: map[string][]excelize.MergeCell{}}
	stats := PopulateStats{Stats: Stats{hvac.FamilyVAV: 0, hvac.FamilyFan: 0, hvac.FamilyHeater: 0}}

	for _, v := range ds.VAVs {
		name, ok := t.find(v.Tag, "VAV")
		if !ok {
			stats.Missing = append(stats.Missing, v.Tag)
			p.logger.Debug("export.populate.no_sheet", "family", hvac.FamilyVAV, "tag", v.Tag)
			continue
		}
		area := text(v.AreaServed)
		if area == "" {
			area = text(v.Location)
		}
		values := map[int]any{
			8:  v.Tag,
			9:  text(v.Location),
			10: area,
			11: text(v.Manufacturer),
			12: text(v.Model),
			13: text(v.InletSize),
			16: totalCFM(v),
			17: cell(v.CFMMin),
			18: cell(v.CFMMax),
			24: text(v.MotorHP),
			25: text(v.MotorVoltage),
			26: text(v.MotorPhase),
			27: text(v.MotorAmperage),
		}
		if v.HasElectricReheat() {
			values[reheatRow] = cell(v.ReheatKW)
		}
		if err := t.column(name, vavColumn, values); err != nil {
			return nil, PopulateStats{}, err
		}
		stats.Stats[hvac.FamilyVAV]++
	}

	for _, fan := range ds.Fans {
		name, ok := t.find(fan.Tag, "EF")
		if !ok {
			stats.Missing = append(stats.Missing, fan.Tag)
			p.logger.Debug("export.populate.no_sheet", "family", hvac.FamilyFan, "tag", fan.Tag)
			continue
		}
		voltage, _, _ := strings.Cut(text(fan.Voltage), "/")
		values := map[int]any{
			8:  fan.Tag,
			9:  text(fan.Location),
			10: text(fan.Location),
			16: cell(fan.CFM),
			18: cell(fan.ESP),
			21: cell(fan.RPM),
			26: strings.TrimSpace(voltage),
		}
		if err := t.column(name, fanColumn, values); err != nil {
			return nil, PopulateStats{}, err
		}
		stats.Stats[hvac.FamilyFan]++
	}

	next := 0
	for _, name := range t.sheets {
		if !strings.Contains(name, HeaterSheetMarker) {
			continue
		}
		for _, block := range heaterBlocks {
			if next >= len(ds.Heaters) {
				break
			}
			h := ds.Heaters[next]
			next++
			values := map[int]any{
				block.tag:      h.Tag,
				block.location: text(h.Location),
				block.cfm:      cell(h.CFM),
				block.voltage:  cell(h.Voltage),
				block.kw:       cell(h.KW),
			}
			if err := t.column(name, heaterColumn, values); err != nil {
				return nil, PopulateStats{}, err
			}
			stats.Stats[hvac.FamilyHeater]++
		}
	}
	for _, h := range ds.Heaters[next:] {
		stats.Missing = append(stats.Missing, h.Tag)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, PopulateStats{}, fmt.Errorf("xlsx write: %w", err)
	}
	p.logger.Info("export.populate.ok",
		"vavs", stats.Stats[hvac.FamilyVAV],
		"fans", stats.Stats[hvac.FamilyFan],
		"heaters", stats.Stats[hvac.FamilyHeater],
		"missing", len(stats.Missing),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, stats, nil
}

type templateBook struct {
	f      *excelize.File
	sheets []string
	merged map[string][]excelize.MergeCell
}

// find resolves the sheet for a tag: exact name, then case-insensitive
// name, then a sheet starting with prefix whose name contains the tag.
func (t *templateBook) find(tag, prefix string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	for _, s := range t.sheets {
		if s == tag {
			return s, true
		}
	}
	for _, s := range t.sheets {
		if strings.EqualFold(s, tag) {
			return s, true
		}
	}
	for _, s := range t.sheets {
		if strings.HasPrefix(s, prefix) && strings.Contains(s, tag) {
			return s, true
		}
	}
	return "", false
}

// column writes non-empty values into col at the given rows.
func (t *templateBook) column(sheet, col string, values map[int]any) error {
	for row, v := range values {
		if isBlank(v) {
			continue
		}
		if err := t.set(sheet, fmt.Sprintf("%s%d", col, row), v); err != nil {
			return fmt.Errorf("populate %s!%s%d: %w", sheet, col, row, err)
		}
	}
	return nil
}

// set writes v at ref, redirecting writes inside a merged range to the
// range's top-left cell.
func (t *templateBook) set(sheet, ref string, v any) error {
	merged, ok := t.merged[sheet]
	if !ok {
		m, err := t.f.GetMergeCells(sheet)
		if err != nil {
			return err
		}
		merged = m
		t.merged[sheet] = m
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return err
	}
	for _, m := range merged {
		c1, r1, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			continue
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			continue
		}
		if col >= c1 && col <= c2 && row >= r1 && row <= r2 {
			ref = m.GetStartAxis()
			break
		}
	}
	return t.f.SetCellValue(sheet, ref, v)
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
