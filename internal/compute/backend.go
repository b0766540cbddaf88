package compute

import "sync"

// Backend runs independent index-parallel work. Implementations must call fn
// exactly once for every index; callers write results into index-owned slots
// so the outcome does not depend on scheduling.
type Backend interface {
	Name() string
	Workers() int
	ParallelFor(n int, fn func(i int))
}

var (
	mu            sync.RWMutex
	activeBackend Backend = AutoSelectBackend()
)

func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	activeBackend = b
}

func GetBackend() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return activeBackend
}

// AutoSelectBackend picks the CPU backend with one worker per CPU.
func AutoSelectBackend() Backend {
	return NewCPUBackend(0)
}

// Or returns b, or the active backend when b is nil.
func Or(b Backend) Backend {
	if b != nil {
		return b
	}
	return GetBackend()
}

type SerialBackend struct{}

func NewSerialBackend() *SerialBackend { return &SerialBackend{} }

func (SerialBackend) Name() string { return "serial" }
func (SerialBackend) Workers() int { return 1 }

func (SerialBackend) ParallelFor(n int, fn func(i int)) {
	for i := 0; i < n; i++ {
		fn(i)
	}
}
