package snowflake

import (
	"sync"
	"time"
)

const (
	epoch       = 1704067200000 // 2024-01-01T00:00:00Z in unix milliseconds
	machineBits = 10
	seqBits     = 12
	machineMax  = 1<<machineBits - 1
	seqMask     = 1<<seqBits - 1
)

// Generator produces 63-bit ordered unique IDs: 41 bits of millisecond
// timestamp, 10 bits of machine ID, 12 bits of per-millisecond sequence.
// IDs from a single generator are strictly increasing.
type Generator struct {
	mu       sync.Mutex
	machine  int64
	lastTime int64
	seq      int64
}

// New returns a Generator for the given machine ID. Only the low 10 bits of
// machineID are used.
func New(machineID int) *Generator {
	return &Generator{
		machine: int64(machineID & machineMax),
	}
}

// MachineID returns the machine ID the generator was built with.
func (g *Generator) MachineID() int {
	return int(g.machine)
}

// Next returns the next ID. It blocks for up to a millisecond when the
// sequence for the current millisecond is exhausted.
func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < g.lastTime {
		// clock went backwards; hold the last observed time so IDs stay ordered
		now = g.lastTime
	}

	if now == g.lastTime {
		g.seq = (g.seq + 1) & seqMask
		if g.seq == 0 {
			for now <= g.lastTime {
				time.Sleep(100 * time.Microsecond)
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.seq = 0
	}
	g.lastTime = now

	return (now-epoch)<<(machineBits+seqBits) | g.machine<<seqBits | g.seq
}
