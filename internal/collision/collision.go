// Package collision implements the swept-circle resolver: given moving
// circular gatherers (one straight step each) and static circular items,
// it produces the time-ordered list of contact events for the step.
package collision

import (
	"errors"
	"sort"

	"github.com/dogpark/server/internal/geom"
)

// ErrZeroSegment is returned when a collect test is asked about a
// zero-length step. Callers must skip non-moving gatherers.
var ErrZeroSegment = errors.New("collision: zero-length gatherer segment")

// Item is a static circle that can be collected or touched.
type Item struct {
	ID       uint64
	Position geom.Point
	Width    float64
}

// Gatherer is a moving circle swept from Start to End over one tick.
type Gatherer struct {
	ID    uint64
	Start geom.Point
	End   geom.Point
	Width float64
}

// Result of projecting an item onto a gatherer's step.
type Result struct {
	SqDistance float64 // squared distance from the item to the step line
	ProjRatio  float64 // position of the closest approach along the step, 0..1 inside
}

// Collected reports whether the closest approach happens within the step
// and within the combined radius.
func (r Result) Collected(collectRadius float64) bool {
	return r.ProjRatio >= 0 && r.ProjRatio <= 1 && r.SqDistance <= collectRadius*collectRadius
}

// TryCollect projects point c onto segment a->b. Exact equality is
// deliberate: even a tiny step must count, so there is no epsilon here.
func TryCollect(a, b, c geom.Point) (Result, error) {
	if a == b {
		return Result{}, ErrZeroSegment
	}
	ux := c.X - a.X
	uy := c.Y - a.Y
	vx := b.X - a.X
	vy := b.Y - a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy
	return Result{
		SqDistance: uLen2 - uDotV*uDotV/vLen2,
		ProjRatio:  uDotV / vLen2,
	}, nil
}

// Provider supplies the world slice the resolver runs over. The concrete
// type below satisfies it; sessions build one per tick.
type Provider interface {
	Items() []Item
	Gatherers() []Gatherer
}

// Slice is the plain value Provider.
type Slice struct {
	ItemList     []Item
	GathererList []Gatherer
}

func (s Slice) Items() []Item         { return s.ItemList }
func (s Slice) Gatherers() []Gatherer { return s.GathererList }

// Event is one contact, at Time in [0,1] along the gatherer's step.
type Event struct {
	ItemID     uint64
	GathererID uint64
	Time       float64
}

// FindSortedGatherEvents tests every moving gatherer against every item
// and returns the contacts ordered by time. Equal times are broken by
// (gatherer id, item id) ascending so the result is deterministic for a
// fixed input.
func FindSortedGatherEvents(p Provider) []Event {
	var events []Event
	items := p.Items()
	for _, g := range p.Gatherers() {
		if g.Start == g.End {
			continue
		}
		for _, item := range items {
			res, err := TryCollect(g.Start, g.End, item.Position)
			if err != nil {
				continue // unreachable: zero steps are skipped above
			}
			if res.Collected(g.Width + item.Width) {
				events = append(events, Event{
					ItemID:     item.ID,
					GathererID: g.ID,
					Time:       res.ProjRatio,
				})
			}
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Time != events[j].Time {
			return events[i].Time < events[j].Time
		}
		if events[i].GathererID != events[j].GathererID {
			return events[i].GathererID < events[j].GathererID
		}
		return events[i].ItemID < events[j].ItemID
	})
	return events
}
