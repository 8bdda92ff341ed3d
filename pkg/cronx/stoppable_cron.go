package cronx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type StoppableCron struct {
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewStoppableCron() *StoppableCron {
	return &StoppableCron{
		cron: cron.New(cron.WithSeconds()),
	}
}

func (sc *StoppableCron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	return sc.cron.AddFunc(spec, cmd)
}

// AddInterval 注册固定间隔任务
func (sc *StoppableCron) AddInterval(every time.Duration, cmd func()) (cron.EntryID, error) {
	if every <= 0 {
		return 0, fmt.Errorf("invalid interval: %v", every)
	}
	return sc.cron.AddFunc(fmt.Sprintf("@every %s", every), cmd)
}

func (sc *StoppableCron) Entry(id cron.EntryID) cron.Entry {
	for _, entry := range sc.cron.Entries() {
		if id == entry.ID {
			return entry
		}
	}
	return cron.Entry{}
}

func (sc *StoppableCron) Start() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.running {
		sc.running = true
		sc.cron.Start()
	}
}

func (sc *StoppableCron) Stop() context.Context {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.running {
		sc.running = false
		return sc.cron.Stop()
	}
	return context.Background()
}

func (sc *StoppableCron) Running() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.running
}
