package snowflake

import (
	"math/rand"

	"github.com/taskdata/taskd"
)

// IDGenerator assigns taskd.IDs from a snowflake Generator.
type IDGenerator struct {
	Generator *Generator
}

// IDGeneratorOp is an option for an IDGenerator.
type IDGeneratorOp func(*IDGenerator)

// WithMachineID uses the low 10 bits of machineID as the machine ID for the
// snowflake ID.
func WithMachineID(machineID int) IDGeneratorOp {
	return func(g *IDGenerator) {
		g.Generator = New(machineID & machineMax)
	}
}

// NewIDGenerator returns a new IDGenerator. Without options the machine ID
// is chosen randomly.
func NewIDGenerator(opts ...IDGeneratorOp) *IDGenerator {
	gen := &IDGenerator{}
	for _, f := range opts {
		f(gen)
	}
	if gen.Generator == nil {
		gen.Generator = New(rand.Intn(machineMax))
	}
	return gen
}

// ID returns the next taskd.ID from an IDGenerator.
func (g *IDGenerator) ID() taskd.ID {
	var id taskd.ID
	for !id.Valid() {
		id = taskd.ID(g.Generator.Next())
	}
	return id
}
