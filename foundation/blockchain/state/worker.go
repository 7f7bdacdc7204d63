package state

import (
	"sync"
	"sync/atomic"
	"time"
)

// syncInterval is how often the watchdog compares this chain against
// its peers.
const syncInterval = 20 * time.Second

// worker manages the background sync workflow for the chain.
type worker struct {
	state     *State
	wg        sync.WaitGroup
	ticker    *time.Ticker
	shut      chan struct{}
	syncNow   chan struct{}
	isSyncing int32
	evHandler EventHandler
}

// runWorker constructs and registers the worker, then starts its
// goroutines.
func runWorker(state *State, evHandler EventHandler) {
	state.worker = &worker{
		state:     state,
		ticker:    time.NewTicker(syncInterval),
		shut:      make(chan struct{}),
		syncNow:   make(chan struct{}, 1),
		evHandler: evHandler,
	}

	operations := []func(){
		state.worker.syncOperations,
	}

	g := len(operations)
	state.worker.wg.Add(g)

	hasStarted := make(chan bool)

	for _, op := range operations {
		go func(op func()) {
			defer state.worker.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// shutdown terminates the goroutines performing work.
func (w *worker) shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.ticker.Stop()
	close(w.shut)
	w.wg.Wait()
}

// syncOperations runs the periodic sync watchdog and serves on-demand
// sync requests.
func (w *worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.syncNow:
			if !w.isShutdown() {
				w.runSyncOperation()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}

// isShutdown is used to test if a shutdown has been signaled.
func (w *worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}

// runSyncOperation performs one sync pass. Overlapping passes are
// collapsed into one.
func (w *worker) runSyncOperation() {
	if !atomic.CompareAndSwapInt32(&w.isSyncing, 0, 1) {
		w.evHandler("worker: runSyncOperation: sync already in flight")
		return
	}
	defer atomic.StoreInt32(&w.isSyncing, 0)

	w.evHandler("worker: runSyncOperation: started")
	defer w.evHandler("worker: runSyncOperation: completed")

	if err := w.state.Sync(); err != nil {
		w.evHandler("worker: runSyncOperation: ERROR: %s", err)
	}
}

// signalSync requests an immediate sync pass. If a signal is already
// pending the request is dropped.
func (w *worker) signalSync() {
	select {
	case w.syncNow <- struct{}{}:
	default:
	}
}

// SignalSync asks the background worker for an immediate sync pass.
// The gossip layer calls this when an announced block is rejected as
// invalid or a pushed sub-chain is too deep or does not attach.
func (s *State) SignalSync() {
	s.worker.signalSync()
}
