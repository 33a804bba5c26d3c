package results

import (
	"runtime"
	"sync"
	"time"
)

/*
MemorySampler tracks the peak heap usage of the process while it runs, by
sampling the runtime memory statistics periodically.
*/
type MemorySampler struct {
	lock sync.Mutex
	peak uint64
	stop chan struct{}
	done chan struct{}
}

// SampleMemory starts a MemorySampler taking a sample every period
func SampleMemory(period time.Duration) *MemorySampler {
	ms := &MemorySampler{stop: make(chan struct{}), done: make(chan struct{})}
	ms.sample()
	go func() {
		defer close(ms.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ms.stop:
				return
			case <-ticker.C:
				ms.sample()
			}
		}
	}()
	return ms
}

func (ms *MemorySampler) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	ms.lock.Lock()
	ms.peak = max(ms.peak, stats.HeapAlloc)
	ms.lock.Unlock()
}

// Stop takes a last sample, stops sampling and returns the peak in MiB
func (ms *MemorySampler) Stop() uint64 {
	close(ms.stop)
	<-ms.done
	ms.sample()
	ms.lock.Lock()
	defer ms.lock.Unlock()
	return ms.peak / (1 << 20)
}
