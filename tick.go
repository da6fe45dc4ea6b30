package depot

// Tick is the world's change counter. It wraps; comparisons are relative to
// the tick of the observer.
type Tick uint32

// ComponentTicks records when a component value was added and last written.
type ComponentTicks struct {
	Added   Tick
	Changed Tick
}

func (t ComponentTicks) IsAdded(lastRun, thisRun Tick) bool {
	return isNewer(t.Added, lastRun, thisRun)
}

func (t ComponentTicks) IsChanged(lastRun, thisRun Tick) bool {
	return isNewer(t.Changed, lastRun, thisRun)
}

func isNewer(tick, lastRun, thisRun Tick) bool {
	return thisRun-tick < thisRun-lastRun
}
