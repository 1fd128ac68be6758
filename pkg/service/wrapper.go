package service

import "context"

// ServiceWrapper adapts plain start/stop functions to Service.
type ServiceWrapper struct {
	name     string
	priority ServicePriority
	start    func(ctx context.Context) error
	stop     func(ctx context.Context) error
}

// NewServiceWrapper creates a wrapper for existing services. Either hook may be nil.
func NewServiceWrapper(name string, priority ServicePriority, start, stop func(ctx context.Context) error) *ServiceWrapper {
	return &ServiceWrapper{name: name, priority: priority, start: start, stop: stop}
}

func (w *ServiceWrapper) Name() string              { return w.name }
func (w *ServiceWrapper) Priority() ServicePriority { return w.priority }

func (w *ServiceWrapper) Start(ctx context.Context) error {
	if w.start == nil {
		return nil
	}
	return w.start(ctx)
}

func (w *ServiceWrapper) Stop(ctx context.Context) error {
	if w.stop == nil {
		return nil
	}
	return w.stop(ctx)
}
