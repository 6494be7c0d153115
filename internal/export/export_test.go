package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

func sampleDataset() hvac.Dataset {
	ds := hvac.Empty()
	ds.VAVs = []hvac.VAV{
		{
			Tag:       "VAVB5-01",
			Location:  hvac.Ptr("501"),
			CFMMax:    hvac.Ptr(750),
			CFMMin:    hvac.Ptr(150),
			InletSize: hvac.Ptr("10"),
			HasReheat: hvac.Ptr(true),
			ReheatKW:  hvac.Ptr(4.0),
			Estimated: []string{"cfm_min"},
		},
		{Tag: "VAVB5-02", Location: hvac.Ptr("502"), TotalCFM: hvac.Ptr(600), CFMMax: hvac.Ptr(600)},
	}
	ds.Fans = []hvac.Fan{{Tag: "EF-1", Location: hvac.Ptr("407 - RR"), CFM: hvac.Ptr(100), ESP: hvac.Ptr(0.25), RPM: hvac.Ptr(1100), Voltage: hvac.Ptr("120/1/60")}}
	ds.CRACs = []hvac.CRAC{{Tag: "CRAC-1", CFM: hvac.Ptr(1000), CoolingCapacity: hvac.Ptr("5 tons")}}
	ds.Heaters = []hvac.Heater{
		{Tag: "VAVB5-01-H", Location: hvac.Ptr("501"), CFM: hvac.Ptr(750), Voltage: hvac.Ptr(277), KW: hvac.Ptr(4.0), AssociatedVAV: hvac.Ptr("VAVB5-01")},
		{Tag: "EDH-2", KW: hvac.Ptr(3.0)},
		{Tag: "EDH-3", KW: hvac.Ptr(1.5)},
	}
	return ds
}

func get(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref)
	require.NoError(t, err)
	return v
}

func TestWriteDataset_JSONAndYAML(t *testing.T) {
	ds := sampleDataset()

	var j bytes.Buffer
	require.NoError(t, WriteDataset(&j, ds, FormatJSON))
	assert.Contains(t, j.String(), `"cfm_max": 750`)
	assert.Contains(t, j.String(), `"air_devices": []`)

	back, err := ReadDataset(&j, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, ds, back)

	var y bytes.Buffer
	require.NoError(t, WriteDataset(&y, ds, FormatYAML))
	assert.Contains(t, y.String(), "cfm_max: 750")
	assert.Contains(t, y.String(), "associated_vav: VAVB5-01")

	back, err = ReadDataset(&y, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, ds.VAVs[0].Tag, back.VAVs[0].Tag)
	assert.Equal(t, 750, hvac.Deref(back.VAVs[0].CFMMax))
}

func TestReadDataset_Errors(t *testing.T) {
	_, err := ReadDataset(strings.NewReader("{not json"), FormatJSON)
	assert.ErrorIs(t, err, common.ErrInput)

	_, err = ReadDataset(strings.NewReader("{}"), Format("xml"))
	assert.ErrorIs(t, err, common.ErrInput)

	ds, err := ReadDataset(strings.NewReader(`{"vavs":[{"tag":"VAV-1"}]}`), FormatJSON)
	require.NoError(t, err)
	assert.Len(t, ds.VAVs, 1)
	assert.NotNil(t, ds.Heaters)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("out/data.YML"))
	assert.Equal(t, FormatYAML, FormatFromPath("data.yaml"))
	assert.Equal(t, FormatJSON, FormatFromPath("data.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("data"))
}

func TestReportWriter(t *testing.T) {
	w := NewReportWriter(ReportOptions{JobNumber: "42", ProjectName: "Arlington", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}, nil)
	buf, stats, err := w.Write(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, Stats{"vavs": 2, "fans": 1, "cracs": 1, "heaters": 3}, stats)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "VAVB5-01", "VAVB5-02", "EF-1", "CRAC-1", "VAVB5-01-H", "EDH-2", "EDH-3"}, f.GetSheetList())

	assert.Equal(t, "HVAC Equipment Summary - Arlington", get(t, f, "Summary", "A1"))
	assert.Equal(t, "Job Number: 42", get(t, f, "Summary", "A3"))
	assert.Equal(t, "Date: 2025-03-01", get(t, f, "Summary", "C3"))
	assert.Equal(t, "VAV UNITS", get(t, f, "Summary", "A5"))
	assert.Equal(t, "VAVB5-01", get(t, f, "Summary", "A7"))
	assert.Equal(t, "750", get(t, f, "Summary", "C7"))
	assert.Equal(t, `10"`, get(t, f, "Summary", "E7"))
	assert.Equal(t, "Yes", get(t, f, "Summary", "F7"))
	assert.Equal(t, "No", get(t, f, "Summary", "F8"))

	vav := "VAVB5-01"
	assert.Equal(t, "Fan Powered VAV Box Test Data", get(t, f, vav, "A1"))
	assert.Equal(t, "42", get(t, f, vav, "B3"))
	assert.Equal(t, "VAVB5-01", get(t, f, vav, "B4"))
	assert.Equal(t, "UNIT INFORMATION", get(t, f, vav, "A6"))
	assert.Equal(t, "Unit Number", get(t, f, vav, "A7"))
	assert.Equal(t, "501", get(t, f, vav, "B8"))
	assert.Equal(t, `10"`, get(t, f, vav, "B12"))
	assert.Equal(t, "AIR MEASUREMENTS", get(t, f, vav, "A14"))
	assert.Equal(t, "Parameter", get(t, f, vav, "A15"))
	assert.Equal(t, "Total Fan CFM", get(t, f, vav, "A16"))
	assert.Equal(t, "750", get(t, f, vav, "B16"), "total falls back to max")
	assert.Equal(t, "150", get(t, f, vav, "B17"))

	var reheat bool
	rows, err := f.GetRows(vav)
	require.NoError(t, err)
	for _, r := range rows {
		if len(r) > 0 && r[0] == "ELECTRIC REHEAT" {
			reheat = true
		}
	}
	assert.True(t, reheat)

	rows, err = f.GetRows("VAVB5-02")
	require.NoError(t, err)
	for _, r := range rows {
		if len(r) > 0 {
			assert.NotEqual(t, "ELECTRIC REHEAT", r[0])
		}
	}
	assert.Equal(t, "600", get(t, f, "VAVB5-02", "B16"))
}

func TestReportWriter_EmptyDataset(t *testing.T) {
	buf, stats, err := NewReportWriter(ReportOptions{}, nil).Write(hvac.Empty())
	require.NoError(t, err)
	assert.Zero(t, stats.Total())

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary"}, f.GetSheetList())
	assert.Equal(t, "HVAC Equipment Summary - HVAC Project", get(t, f, "Summary", "A1"))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "VAV_1_2", SheetName("VAV/1:2"))
	assert.Equal(t, "Sheet", SheetName("  "))
	long := strings.Repeat("X", 40)
	assert.Len(t, SheetName(long), 31)

	used := map[string]bool{}
	assert.Equal(t, "EF-1", uniqueName("EF-1", used))
	assert.Equal(t, "ef-1 (2)", uniqueName("ef-1", used))
	name := uniqueName(SheetName(long), used)
	again := uniqueName(SheetName(long), used)
	assert.NotEqual(t, name, again)
	assert.LessOrEqual(t, len(again), 31)
}

func template(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "VAVB5-01"))
	for _, name := range []string{"vavb5-02", "VAV Box VAVB5-03", "ef-1", "Electric Duct Heater", "Notes", "Electric Duct Heater (1)"} {
		_, err := f.NewSheet(name)
		require.NoError(t, err)
	}
	require.NoError(t, f.MergeCell("VAVB5-01", "J9", "L9"))
	require.NoError(t, f.SetCellValue("VAVB5-01", "K11", "Template Manufacturer"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestTemplatePopulator(t *testing.T) {
	ds := sampleDataset()
	ds.VAVs = append(ds.VAVs, hvac.VAV{Tag: "VAVB5-03", CFMMax: hvac.Ptr(300)}, hvac.VAV{Tag: "VAVB5-99"})

	buf, stats, err := NewTemplatePopulator(nil).Populate(template(t), ds)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Stats["vavs"])
	assert.Equal(t, 1, stats.Stats["fans"])
	assert.Equal(t, 3, stats.Stats["heaters"])
	assert.Equal(t, []string{"VAVB5-99"}, stats.Missing)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, "VAVB5-01", get(t, f, "VAVB5-01", "K8"))
	assert.Equal(t, "501", get(t, f, "VAVB5-01", "J9"), "merged range receives the value at its top-left cell")
	assert.Equal(t, "501", get(t, f, "VAVB5-01", "K10"), "area served falls back to location")
	assert.Equal(t, "Template Manufacturer", get(t, f, "VAVB5-01", "K11"), "blank values keep template content")
	assert.Equal(t, "750", get(t, f, "VAVB5-01", "K16"))
	assert.Equal(t, "150", get(t, f, "VAVB5-01", "K17"))
	assert.Equal(t, "4", get(t, f, "VAVB5-01", "K20"))

	assert.Equal(t, "600", get(t, f, "vavb5-02", "K16"))
	assert.Equal(t, "", get(t, f, "vavb5-02", "K20"))
	assert.Equal(t, "300", get(t, f, "VAV Box VAVB5-03", "K18"))

	assert.Equal(t, "EF-1", get(t, f, "ef-1", "N8"))
	assert.Equal(t, "407 - RR", get(t, f, "ef-1", "N10"))
	assert.Equal(t, "120", get(t, f, "ef-1", "N26"))
	assert.Equal(t, "1100", get(t, f, "ef-1", "N21"))

	assert.Equal(t, "VAVB5-01-H", get(t, f, "Electric Duct Heater", "K8"))
	assert.Equal(t, "277", get(t, f, "Electric Duct Heater", "K17"))
	assert.Equal(t, "EDH-2", get(t, f, "Electric Duct Heater", "K24"))
	assert.Equal(t, "3", get(t, f, "Electric Duct Heater", "K35"))
	assert.Equal(t, "EDH-3", get(t, f, "Electric Duct Heater (1)", "K8"))
	assert.Equal(t, "", get(t, f, "Electric Duct Heater (1)", "K24"))
}

func TestTemplatePopulator_BadTemplate(t *testing.T) {
	_, _, err := NewTemplatePopulator(nil).Populate(strings.NewReader("not a workbook"), hvac.Empty())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInput)
}
