package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypePlaybookTrigger JobType = "playbook_trigger"
	JobTypeRetentionEmail  JobType = "retention_email"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// PlaybookTriggerPayload asks the downstream playbook processor to
// re-evaluate one owner's playbooks after fresh scores arrived.
type PlaybookTriggerPayload struct {
	OwnerID string `json:"owner_id"`
}

// ToMap converts the payload to a map for storage
func (p PlaybookTriggerPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"owner_id": p.OwnerID,
	}
}

// PlaybookTriggerPayloadFromMap creates a payload from a stored map
func PlaybookTriggerPayloadFromMap(data map[string]interface{}) (*PlaybookTriggerPayload, error) {
	return payloadFromMap[PlaybookTriggerPayload](data)
}

// RetentionEmailPayload carries one outbound retention email.
type RetentionEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// ToMap converts the payload to a map for storage
func (p RetentionEmailPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"to":      p.To,
		"subject": p.Subject,
		"html":    p.HTML,
	}
}

// RetentionEmailPayloadFromMap creates a payload from a stored map
func RetentionEmailPayloadFromMap(data map[string]interface{}) (*RetentionEmailPayload, error) {
	return payloadFromMap[RetentionEmailPayload](data)
}

func payloadFromMap[T any](data map[string]interface{}) (*T, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload T
	if err := json.Unmarshal(jsonData, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
