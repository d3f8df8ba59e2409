package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	RunOnce(ctx context.Context) error
	Persist(ctx context.Context) error
}
