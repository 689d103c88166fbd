package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"aivisibility/backend-go/internal/models"
)

// envelopeKeys are the object keys upstream endpoints have been seen to wrap
// record arrays in.
var envelopeKeys = []string{"data", "results", "brands", "items", "rows"}

// DecodeRecords decodes an upstream payload into records. It accepts a bare
// JSON array or an object wrapping the array under one of envelopeKeys.
// Array elements that are not objects are dropped. An empty body yields no
// records and no error.
func DecodeRecords(data []byte) ([]models.RawMetricRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []models.RawMetricRecord{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return []models.RawMetricRecord{}, fmt.Errorf("decode records: %w", err)
	}
	return RecordsFrom(root), nil
}

// RecordsFrom converts an already-decoded JSON value into records using the
// same envelope rules as DecodeRecords.
func RecordsFrom(root any) []models.RawMetricRecord {
	switch v := root.(type) {
	case []any:
		return recordsFromList(v)
	case map[string]any:
		for _, k := range envelopeKeys {
			if list, ok := v[k].([]any); ok {
				return recordsFromList(list)
			}
		}
	}
	return []models.RawMetricRecord{}
}

func recordsFromList(list []any) []models.RawMetricRecord {
	out := make([]models.RawMetricRecord, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, models.RawMetricRecord(m))
		}
	}
	return out
}
