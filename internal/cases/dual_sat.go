package cases

import (
	"github.com/pan-ssds/ptest/internal/enums"
	"github.com/pan-ssds/ptest/internal/ptest"
	"github.com/pan-ssds/ptest/internal/sim"
)

// DualSatLockstep drives a leader and a follower through the same cycles
// and checks their counters and roles stay consistent.
type DualSatLockstep struct {
	Cycles int
}

// NewDualSatLockstep returns the case with a five-cycle run.
func NewDualSatLockstep() *DualSatLockstep {
	return &DualSatLockstep{Cycles: 5}
}

func (c *DualSatLockstep) Name() string { return "dual_sat_lockstep" }

func (c *DualSatLockstep) Description() string {
	return "Step leader and follower together and check counters and roles"
}

// Satellites implements ptest.FixedCardinality.
func (c *DualSatLockstep) Satellites() int { return 2 }

func (c *DualSatLockstep) SetupMultiSat(ts []*ptest.T) error {
	leader, follower := ts[0], ts[1]
	leader.WriteEnum("pan.state", enums.MissionStates, "leader")
	follower.WriteEnum("pan.state", enums.MissionStates, "follower")
	return nil
}

func (c *DualSatLockstep) RunMultiSat(ts []*ptest.T) error {
	leader, follower := ts[0], ts[1]
	offset := leader.RSInt(sim.CycleField) - follower.RSInt(sim.CycleField)

	for i := 0; i < c.Cycles; i++ {
		l := leader.Cycle()
		f := follower.Cycle()
		leader.SoftAssert(l-f == offset, "lockstep at step %d: leader %d, follower %d", i, l, f)
	}

	leader.SoftAssert(leader.RSEnum("pan.state", enums.MissionStates) == "leader", "leader role held")
	follower.SoftAssert(follower.RSEnum("pan.state", enums.MissionStates) == "follower", "follower role held")

	leader.Finish()
	return nil
}
