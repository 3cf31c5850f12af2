package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReportExportMessage tells the worker an export job is waiting. It only
// carries the job ID; the worker loads the job from the store.
type ReportExportMessage struct {
	JobID     string    `json:"job_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(jobID string) *ReportExportMessage {
	return &ReportExportMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON decodes a message and requires a job ID.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" {
		return nil, errors.New("message has no job_id")
	}
	return &msg, nil
}
