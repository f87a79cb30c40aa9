package global

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/compresslab/compressor/src/configure"
)

// Context carries the process configuration and shared instances, and tracks
// background work so shutdown can drain it.
type Context interface {
	context.Context
	Instances() *Instances
	Config() *configure.Config
	AddTask(n int)
	DoneTask()
	InFlight() int
	Wait()
}

type GlobalContext struct {
	context.Context
	Insts *Instances
	Cfg   *configure.Config

	wg       sync.WaitGroup
	inflight atomic.Int64
}

func New(ctx context.Context, config *configure.Config) Context {
	return &GlobalContext{
		Context: ctx,
		Insts:   &Instances{},
		Cfg:     config,
	}
}

func (g *GlobalContext) Instances() *Instances {
	return g.Insts
}

func (g *GlobalContext) Config() *configure.Config {
	return g.Cfg
}

func (g *GlobalContext) AddTask(n int) {
	g.inflight.Add(int64(n))
	g.wg.Add(n)
}

func (g *GlobalContext) DoneTask() {
	g.inflight.Add(-1)
	g.wg.Done()
}

func (g *GlobalContext) InFlight() int {
	return int(g.inflight.Load())
}

func (g *GlobalContext) Wait() {
	g.wg.Wait()
}
