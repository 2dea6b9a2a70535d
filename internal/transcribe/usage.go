package transcribe

import (
	"sync"
	"time"
)

// CostPerMinuteUSD is the whisper-1 transcription price per billed minute.
const CostPerMinuteUSD = 0.006

// Usage accumulates billed audio duration across transcription calls so the
// caller can display running cost. It is created once at pipeline start and
// passed by reference into the Client; reads and resets are explicit.
// Safe for concurrent use.
type Usage struct {
	mu     sync.Mutex
	billed time.Duration
	calls  int
}

// Add records one successful call billing d of audio.
func (u *Usage) Add(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.billed += d
	u.calls++
}

// BilledDuration returns the total billed audio duration so far.
func (u *Usage) BilledDuration() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.billed
}

// Calls returns the number of successful calls so far.
func (u *Usage) Calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// EstimatedCostUSD returns the running cost at CostPerMinuteUSD.
func (u *Usage) EstimatedCostUSD() float64 {
	return u.BilledDuration().Minutes() * CostPerMinuteUSD
}

// Reset clears the accumulated totals.
func (u *Usage) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.billed = 0
	u.calls = 0
}

// EstimateCostUSD estimates the cost of transcribing d of audio before any
// call is made, for pre-flight display.
func EstimateCostUSD(d time.Duration) float64 {
	return d.Minutes() * CostPerMinuteUSD
}
