// Package export writes a merged dataset out: JSON or YAML dumps, a
// generated report workbook, and a populated copy of a customer template.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/hvac-extractor/internal/common"
	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the dump format from a file extension, JSON unless
// the file ends in .yaml or .yml.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// WriteDataset dumps ds in the given format. JSON is indented.
func WriteDataset(w io.Writer, ds hvac.Dataset, format Format) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ds); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		return common.InputError(fmt.Sprintf("unknown dataset format %q", format), nil)
	}
	return nil
}

// ReadDataset loads a dump written by WriteDataset. Missing families come
// back as empty sequences.
func ReadDataset(r io.Reader, format Format) (hvac.Dataset, error) {
	ds := hvac.Empty()
	var err error
	switch format {
	case FormatJSON, "":
		err = json.NewDecoder(r).Decode(&ds)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&ds)
	default:
		return ds, common.InputError(fmt.Sprintf("unknown dataset format %q", format), nil)
	}
	if err != nil {
		return hvac.Empty(), common.InputError("decode dataset", err)
	}
	return fill(ds), nil
}

func fill(ds hvac.Dataset) hvac.Dataset {
	e := hvac.Empty()
	if ds.VAVs == nil {
		ds.VAVs = e.VAVs
	}
	if ds.Fans == nil {
		ds.Fans = e.Fans
	}
	if ds.CRACs == nil {
		ds.CRACs = e.CRACs
	}
	if ds.Heaters == nil {
		ds.Heaters = e.Heaters
	}
	if ds.AirDevices == nil {
		ds.AirDevices = e.AirDevices
	}
	return ds
}
