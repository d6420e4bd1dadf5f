package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/churnaizer/churnaizer/internal/pkg/mail"
	"github.com/churnaizer/churnaizer/internal/pkg/playbook"
)

// Manager owns the global queue and its processors.
type Manager struct {
	queue    *Queue
	playbook *playbook.Client
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager, creating it on
// first use.
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue:    NewQueue(2),
			playbook: playbook.NewClientFromEnv(),
		}
		globalManager.queue.RegisterProcessor(JobTypePlaybookTrigger, globalManager.processPlaybookTrigger)
		globalManager.queue.RegisterProcessor(JobTypeRetentionEmail, globalManager.processRetentionEmail)
	})
	return globalManager
}

// Start launches the queue workers.
func (m *Manager) Start() {
	m.queue.Start()
}

// Stop drains the queue workers.
func (m *Manager) Stop() {
	m.queue.Stop()
}

// EnqueuePlaybookTrigger schedules a playbook re-evaluation for one
// owner. Fire-and-forget: enqueue failures are logged and dropped.
func (m *Manager) EnqueuePlaybookTrigger(ownerID string) {
	payload := PlaybookTriggerPayload{OwnerID: ownerID}
	if _, err := m.queue.Enqueue(JobTypePlaybookTrigger, payload.ToMap()); err != nil {
		log.Warnf("[JobQueue] failed to enqueue playbook trigger for %s: %v", ownerID, err)
	}
}

// EnqueueRetentionEmail schedules one outbound retention email.
func (m *Manager) EnqueueRetentionEmail(to, subject, html string) (string, error) {
	payload := RetentionEmailPayload{To: to, Subject: subject, HTML: html}
	return m.queue.Enqueue(JobTypeRetentionEmail, payload.ToMap())
}

func (m *Manager) processPlaybookTrigger(job *Job) error {
	payload, err := PlaybookTriggerPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	// The playbook call itself is best-effort; a dead endpoint must
	// not keep the job retrying forever.
	if err := m.playbook.Trigger(payload.OwnerID); err != nil {
		log.Warnf("[JobQueue] playbook trigger for %s failed, continuing: %v", payload.OwnerID, err)
	}
	return nil
}

func (m *Manager) processRetentionEmail(job *Job) error {
	payload, err := RetentionEmailPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	return mail.SendMail(payload.To, payload.Subject, payload.HTML)
}
