// Package projection holds the pure functions that fold an event sequence
// into derived state: LLM context, pending tool calls, the next-step
// decision, and session statistics.
//
// Every projection is deterministic and total: no I/O, no clock, identical
// results for identical inputs. The stream is the only source of truth;
// everything here is a view.
package projection

import "github.com/zcox/messagedb-agent/internal/domain/event"

// lastOfKind returns the most recent event of the given kind and its index,
// or index -1 when absent.
func lastOfKind(events []event.Event, kind event.Kind) (event.Event, int) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == kind {
			return events[i], i
		}
	}
	return event.Event{}, -1
}
