// Package service starts and stops the bot's long-lived components in a
// fixed order.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/small-frappuccino/wikiguide/pkg/log"
)

type ServiceState string

const (
	StateStopped ServiceState = "stopped"
	StateRunning ServiceState = "running"
	StateFailed  ServiceState = "failed"
)

// ServicePriority determines startup/shutdown order (higher number = higher priority)
type ServicePriority int

const (
	PriorityLow    ServicePriority = 1
	PriorityNormal ServicePriority = 5
	PriorityHigh   ServicePriority = 10
)

// Service is a component with an explicit lifecycle.
type Service interface {
	Name() string
	Priority() ServicePriority
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var ErrDuplicateService = errors.New("service already registered")

type entry struct {
	svc   Service
	seq   int
	state ServiceState
}

// ServiceManager starts services highest priority first and stops them in
// the reverse of the order they actually started.
type ServiceManager struct {
	mu       sync.Mutex
	services map[string]*entry
	started  []*entry
	seq      int
}

func NewServiceManager() *ServiceManager {
	return &ServiceManager{services: make(map[string]*entry)}
}

func (sm *ServiceManager) Register(svc Service) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	name := svc.Name()
	if _, exists := sm.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateService, name)
	}
	sm.services[name] = &entry{svc: svc, seq: sm.seq, state: StateStopped}
	sm.seq++
	log.ApplicationLogger().Debug("Service registered", "service", name, "priority", svc.Priority())
	return nil
}

// StartAll starts every registered service. When one fails, the services
// already started are stopped again and the failure is returned.
func (sm *ServiceManager) StartAll(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, e := range sm.startOrder() {
		if e.state == StateRunning {
			continue
		}
		name := e.svc.Name()
		if err := e.svc.Start(ctx); err != nil {
			e.state = StateFailed
			log.ErrorLoggerRaw().Error("Service failed to start", "service", name, "error", err)
			stopErr := sm.stopStarted(ctx)
			return errors.Join(fmt.Errorf("start %s: %w", name, err), stopErr)
		}
		e.state = StateRunning
		sm.started = append(sm.started, e)
		log.ApplicationLogger().Info("Service started", "service", name)
	}
	return nil
}

// StopAll stops every running service and reports every failure.
func (sm *ServiceManager) StopAll(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.stopStarted(ctx)
}

// State reports a service's lifecycle state.
func (sm *ServiceManager) State(name string) (ServiceState, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	e, ok := sm.services[name]
	if !ok {
		return "", false
	}
	return e.state, true
}

func (sm *ServiceManager) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(sm.started) - 1; i >= 0; i-- {
		e := sm.started[i]
		name := e.svc.Name()
		if err := e.svc.Stop(ctx); err != nil {
			e.state = StateFailed
			log.ErrorLoggerRaw().Error("Service failed to stop", "service", name, "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		e.state = StateStopped
		log.ApplicationLogger().Info("Service stopped", "service", name)
	}
	sm.started = nil
	return errors.Join(errs...)
}

func (sm *ServiceManager) startOrder() []*entry {
	order := make([]*entry, 0, len(sm.services))
	for _, e := range sm.services {
		order = append(order, e)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].svc.Priority() != order[j].svc.Priority() {
			return order[i].svc.Priority() > order[j].svc.Priority()
		}
		return order[i].seq < order[j].seq
	})
	return order
}
