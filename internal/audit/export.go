package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"
)

// Exporter renders audit entries for download.
type Exporter struct{}

// NewExporter constructs an Exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// WriteCSV encodes entries as CSV, one row per entry, newest first as given.
func (e *Exporter) WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "real_user_id", "real_user_email", "event_type", "event_data", "created_at"}); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := json.Marshal(entry.EventData)
		if err != nil {
			return nil, err
		}
		record := []string{
			entry.ID.String(),
			entry.RealUserID,
			entry.RealUserEmail,
			entry.EventType,
			string(data),
			entry.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
