package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/hvac-extractor/internal/hvac"
)

// ParseFragment turns a raw model reply into a dataset. It never fails: any
// reply that cannot be read as the fragment shape yields hvac.Empty() and
// false, so one bad page never aborts a run.
func ParseFragment(raw string, logger *slog.Logger) (hvac.Dataset, bool) {
	if logger == nil {
		logger = slog.Default()
	}
	empty := func(reason string, err error) (hvac.Dataset, bool) {
		attrs := []any{"reason", reason, "raw_len", len(raw), "raw_head", head(raw, 120)}
		if err != nil {
			attrs = append(attrs, "error", err)
		}
		logger.Warn("vision.parse.empty", attrs...)
		return hvac.Empty(), false
	}

	body, ok := TrimToObject(strings.TrimSpace(raw))
	if !ok {
		return empty("no_json_object", nil)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return empty("decode", err)
	}

	// The reply is checked as the model sent it; sanitizing then repairs
	// whatever drifted from the schema.
	if err := ValidateFragment([]byte(body)); err != nil {
		logger.Warn("vision.parse.schema_drift", "error", err)
	}

	clean, dropped := SanitizeFragment(m)
	if len(dropped) > 0 {
		logger.Debug("vision.parse.sanitized", "dropped", dropped)
	}

	doc, err := json.Marshal(clean)
	if err != nil {
		return empty("encode", err)
	}

	var ds hvac.Dataset
	if err := json.Unmarshal(doc, &ds); err != nil {
		return empty("typed_decode", err)
	}
	return normalize(ds), true
}

// normalize replaces nil family slices with empty ones.
func normalize(ds hvac.Dataset) hvac.Dataset {
	if ds.VAVs == nil {
		ds.VAVs = []hvac.VAV{}
	}
	if ds.Fans == nil {
		ds.Fans = []hvac.Fan{}
	}
	if ds.CRACs == nil {
		ds.CRACs = []hvac.CRAC{}
	}
	if ds.Heaters == nil {
		ds.Heaters = []hvac.Heater{}
	}
	if ds.AirDevices == nil {
		ds.AirDevices = []hvac.AirDevice{}
	}
	return ds
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
