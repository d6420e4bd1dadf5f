package controllers

import (
	"sync"

	"github.com/churnaizer/churnaizer/internal/pkg/churn"
	"github.com/churnaizer/churnaizer/internal/pkg/jobqueue"
	"github.com/churnaizer/churnaizer/internal/pkg/statistics"
)

var (
	churnService   *churn.Service
	churnServiceMu sync.RWMutex
)

// SetChurnService injects the pipeline service. Used by tests; the
// default instance is wired from the global repository factory.
func SetChurnService(svc *churn.Service) {
	churnServiceMu.Lock()
	defer churnServiceMu.Unlock()
	churnService = svc
}

func getChurnService() *churn.Service {
	churnServiceMu.RLock()
	svc := churnService
	churnServiceMu.RUnlock()
	if svc != nil {
		return svc
	}

	churnServiceMu.Lock()
	defer churnServiceMu.Unlock()
	if churnService == nil {
		churnService = churn.NewServiceFromFactory(&queueNotifier{})
	}
	return churnService
}

// queueNotifier hands playbook triggers to the background queue and
// drops the owner's cached dashboard numbers.
type queueNotifier struct{}

func (n *queueNotifier) TriggerPlaybooks(ownerID string) {
	jobqueue.GetManager().EnqueuePlaybookTrigger(ownerID)
	statistics.Invalidate(ownerID)
}
