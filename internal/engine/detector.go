package engine

import "github.com/jpalmerr/scoutboard/internal/freescout"

// detector tracks the conversation ids seen by the last successful cycle.
//
// diff is read-only; the known set only changes through commit, which the
// engine calls from its single success path.
type detector struct {
	known  map[int]struct{}
	primed bool
}

// diff returns the conversations not seen by the last committed cycle, in
// input order, and the id set to commit if the cycle succeeds. Before the
// first commit it returns no arrivals: a cold start only seeds the set.
func (d *detector) diff(convs []freescout.Conversation) ([]freescout.Conversation, map[int]struct{}) {
	current := make(map[int]struct{}, len(convs))
	for _, c := range convs {
		current[c.ID] = struct{}{}
	}

	if !d.primed {
		return nil, current
	}

	var arrivals []freescout.Conversation
	for _, c := range convs {
		if _, ok := d.known[c.ID]; !ok {
			arrivals = append(arrivals, c)
		}
	}
	return arrivals, current
}

// commit replaces the known set.
func (d *detector) commit(current map[int]struct{}) {
	d.known = current
	d.primed = true
}
