package export

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

const summarySheet = "Summary"

// ReportOptions is the job header printed on every sheet.
type ReportOptions struct {
	JobNumber   string
	ProjectName string
	Date        time.Time
}

// ReportWriter generates a test-data workbook: a summary sheet followed by
// one sheet per VAV, fan, CRAC and heater. Heaters are rendered as found in
// the dataset, derivation having already happened in the merge.
type ReportWriter struct {
	opts   ReportOptions
	logger *slog.Logger
}

func NewReportWriter(opts ReportOptions, logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.JobNumber == "" {
		opts.JobNumber = "1168"
	}
	if opts.ProjectName == "" {
		opts.ProjectName = "HVAC Project"
	}
	return &ReportWriter{opts: opts, logger: logger}
}

// section is a titled block of rows. Measured sections get a
// Parameter/Design/Actual header and an empty Actual column.
type section struct {
	title    string
	measured bool
	rows     []row
}

type row struct {
	label string
	value any
}

type sheetSpec struct {
	tag    string
	title  string
	widths map[string]float64
	parts  []section
}

func (w *ReportWriter) Write(ds hvac.Dataset) (*bytes.Buffer, Stats, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx style: %w", err)
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 12},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, nil, fmt.Errorf("xlsx summary: %w", err)
	}
	used := map[string]bool{strings.ToLower(summarySheet): true}
	if err := w.summary(&sheet{f: f, name: summarySheet, bold: bold, section: sectionStyle}, header, ds); err != nil {
		return nil, nil, fmt.Errorf("xlsx summary: %w", err)
	}

	stats := Stats{hvac.FamilyVAV: 0, hvac.FamilyFan: 0, hvac.FamilyCRAC: 0, hvac.FamilyHeater: 0}
	emit := func(family string, spec sheetSpec) error {
		name := uniqueName(SheetName(spec.tag), used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx sheet %q: %w", name, err)
		}
		s := &sheet{f: f, name: name, bold: bold, section: sectionStyle}
		w.render(s, header, spec)
		if s.err != nil {
			return fmt.Errorf("xlsx sheet %q: %w", name, s.err)
		}
		stats[family]++
		return nil
	}

	for _, v := range ds.VAVs {
		if err := emit(hvac.FamilyVAV, vavSheet(v)); err != nil {
			return nil, nil, err
		}
	}
	for _, fan := range ds.Fans {
		if err := emit(hvac.FamilyFan, fanSheet(fan)); err != nil {
			return nil, nil, err
		}
	}
	for _, c := range ds.CRACs {
		if err := emit(hvac.FamilyCRAC, cracSheet(c)); err != nil {
			return nil, nil, err
		}
	}
	for _, h := range ds.Heaters {
		if err := emit(hvac.FamilyHeater, heaterSheet(h)); err != nil {
			return nil, nil, err
		}
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, nil, fmt.Errorf("xlsx write: %w", err)
	}
	w.logger.Info("export.report.ok",
		"vavs", stats[hvac.FamilyVAV],
		"fans", stats[hvac.FamilyFan],
		"cracs", stats[hvac.FamilyCRAC],
		"heaters", stats[hvac.FamilyHeater],
		"sheets", stats.Total()+1,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, stats, nil
}

func (w *ReportWriter) date() string {
	d := w.opts.Date
	if d.IsZero() {
		d = time.Now()
	}
	return d.Format("2006-01-02")
}

func (w *ReportWriter) render(s *sheet, header int, spec sheetSpec) {
	s.widths(spec.widths)
	s.set(1, 1, spec.title)
	s.style(1, 1, header)

	s.label(1, 3, "Job Number:")
	s.set(2, 3, w.opts.JobNumber)
	s.label(3, 3, "Date:")
	s.set(4, 3, w.date())
	s.label(1, 4, "System:")
	s.set(2, 4, spec.tag)
	s.label(3, 4, "Project:")
	s.set(4, 4, w.opts.ProjectName)

	r := 6
	for _, sec := range spec.parts {
		s.set(1, r, sec.title)
		s.style(1, r, s.section)
		r++
		if sec.measured {
			s.label(1, r, "Parameter")
			s.label(2, r, "Design")
			s.label(3, r, "Actual")
			r++
		}
		for _, rw := range sec.rows {
			if sec.measured {
				s.set(1, r, rw.label)
			} else {
				s.label(1, r, rw.label)
			}
			s.set(2, r, rw.value)
			r++
		}
		r++
	}
}

func (w *ReportWriter) summary(s *sheet, header int, ds hvac.Dataset) error {
	s.widths(map[string]float64{"A": 15, "B": 15, "C": 12, "D": 12, "E": 12, "F": 12, "G": 15})
	s.set(1, 1, "HVAC Equipment Summary - "+w.opts.ProjectName)
	s.style(1, 1, header)
	s.set(1, 3, "Job Number: "+w.opts.JobNumber)
	s.set(3, 3, "Date: "+w.date())

	r := 5
	table := func(title string, headers []string, rows [][]any) {
		s.set(1, r, title)
		s.style(1, r, s.section)
		r++
		for i, h := range headers {
			s.label(i+1, r, h)
		}
		r++
		for _, values := range rows {
			for i, v := range values {
				s.set(i+1, r, v)
			}
			r++
		}
		r++
	}

	vavs := make([][]any, 0, len(ds.VAVs))
	for _, v := range ds.VAVs {
		reheat := "No"
		if v.HasElectricReheat() {
			reheat = "Yes"
		}
		vavs = append(vavs, []any{v.Tag, text(v.Location), cell(v.CFMMax), cell(v.CFMMin), inletLabel(v.InletSize), reheat, cell(v.ReheatKW)})
	}
	table("VAV UNITS", []string{"Tag", "Location", "Max CFM", "Min CFM", "Inlet Size", "Reheat", "Reheat KW"}, vavs)

	fans := make([][]any, 0, len(ds.Fans))
	for _, fan := range ds.Fans {
		fans = append(fans, []any{fan.Tag, text(fan.Location), text(fan.FanType), cell(fan.CFM), cell(fan.ESP), cell(fan.RPM), text(fan.Voltage)})
	}
	table("EXHAUST FANS", []string{"Tag", "Location", "Type", "CFM", "ESP", "RPM", "Voltage"}, fans)

	cracs := make([][]any, 0, len(ds.CRACs))
	for _, c := range ds.CRACs {
		cracs = append(cracs, []any{c.Tag, text(c.Location), cell(c.CFM), text(c.CoolingCapacity)})
	}
	table("CRAC UNITS", []string{"Tag", "Location", "CFM", "Cooling Capacity"}, cracs)

	return s.err
}

// inletLabel prints an inlet size in inches, adding the inch mark when the
// value is a bare number.
func inletLabel(p *string) string {
	v := text(p)
	if v == "" || strings.HasSuffix(v, `"`) {
		return v
	}
	return v + `"`
}

func totalCFM(v hvac.VAV) any {
	if v.TotalCFM != nil {
		return *v.TotalCFM
	}
	return cell(v.CFMMax)
}

func vavSheet(v hvac.VAV) sheetSpec {
	parts := []section{
		{title: "UNIT INFORMATION", rows: []row{
			{"Unit Number", v.Tag},
			{"Location", text(v.Location)},
			{"Area Served", text(v.AreaServed)},
			{"Manufacturer", text(v.Manufacturer)},
			{"Model Number", text(v.Model)},
			{"Primary Air Inlet Size", inletLabel(v.InletSize)},
		}},
		{title: "AIR MEASUREMENTS", measured: true, rows: []row{
			{"Total Fan CFM", totalCFM(v)},
			{"Minimum CFM", cell(v.CFMMin)},
			{"Maximum CFM", cell(v.CFMMax)},
			{"Fan Speed Setting", ""},
			{"DDC Calibration Factor", ""},
			{"DDC Address", ""},
		}},
		{title: "MOTOR MEASUREMENTS", measured: true, rows: []row{
			{"Motor HP", text(v.MotorHP)},
			{"Motor Voltage", text(v.MotorVoltage)},
			{"Motor Phase", text(v.MotorPhase)},
			{"Motor Amperage", text(v.MotorAmperage)},
			{"CFLA", ""},
		}},
	}
	if v.HasElectricReheat() {
		parts = append(parts, section{title: "ELECTRIC REHEAT", measured: true, rows: []row{
			{"Reheat KW", cell(v.ReheatKW)},
		}})
	}
	return sheetSpec{
		tag:    v.Tag,
		title:  "Fan Powered VAV Box Test Data",
		widths: map[string]float64{"A": 25, "B": 20, "C": 15, "D": 15, "E": 15},
		parts:  parts,
	}
}

func fanSheet(f hvac.Fan) sheetSpec {
	return sheetSpec{
		tag:    f.Tag,
		title:  "Direct Drive Fan Test Data",
		widths: map[string]float64{"A": 30, "B": 15, "C": 15, "D": 15},
		parts: []section{
			{title: "UNIT INFORMATION", rows: []row{
				{"Unit Number", f.Tag},
				{"Location", text(f.Location)},
				{"Type", text(f.FanType)},
				{"Drive", text(f.Drive)},
			}},
			{title: "AIR MEASUREMENTS", measured: true, rows: []row{
				{"Total Fan CFM", cell(f.CFM)},
				{"External Static Pressure (in WG)", cell(f.ESP)},
				{"Fan RPM", cell(f.RPM)},
			}},
			{title: "MOTOR MEASUREMENTS", rows: []row{
				{"Motor Power", text(f.MotorPower)},
				{"Voltage", text(f.Voltage)},
			}},
		},
	}
}

func cracSheet(c hvac.CRAC) sheetSpec {
	return sheetSpec{
		tag:    c.Tag,
		title:  "Computer Room AC Unit Test Data",
		widths: map[string]float64{"A": 30, "B": 15, "C": 15, "D": 15},
		parts: []section{
			{title: "UNIT INFORMATION", rows: []row{
				{"Unit Number", c.Tag},
				{"Location", text(c.Location)},
			}},
			{title: "PERFORMANCE", measured: true, rows: []row{
				{"CFM", cell(c.CFM)},
				{"Cooling Capacity", text(c.CoolingCapacity)},
			}},
		},
	}
}

func heaterSheet(h hvac.Heater) sheetSpec {
	return sheetSpec{
		tag:    h.Tag,
		title:  "Electric Duct Heater Test Data",
		widths: map[string]float64{"A": 30, "B": 15, "C": 15, "D": 15},
		parts: []section{
			{title: "HEATER INFORMATION", rows: []row{
				{"Unit Number", h.Tag},
				{"Location", text(h.Location)},
				{"Associated VAV", text(h.AssociatedVAV)},
			}},
			{title: "HEATER PERFORMANCE", measured: true, rows: []row{
				{"CFM", cell(h.CFM)},
				{"Voltage", cell(h.Voltage)},
				{"KW", cell(h.KW)},
			}},
		},
	}
}
