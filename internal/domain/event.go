package domain

// EventType distinguishes the event variants the scheduler dispatches.
// Modeled as a closed sum type rather than a class hierarchy, so
// dispatch is a switch instead of virtual calls.
type EventType int8

const (
	// EventOrderSubmission fires submit_time + submitter_latency after
	// an agent decides to send an order; it feeds the book's admission
	// control.
	EventOrderSubmission EventType = iota
	// EventOrderQueued fires at a deferred admission slot and always
	// admits — it already consumed its service-time slot.
	EventOrderQueued
	// EventMarketData delivers one Trade to one agent, subject to the
	// agent's order_block_time gate.
	EventMarketData
	// EventSnapshotRequest samples a book's top-N view at its fire
	// time and schedules the paired EventSnapshotResponse.
	EventSnapshotRequest
	// EventSnapshotResponse delivers a previously captured BookView to
	// the requesting agent.
	EventSnapshotResponse
	// EventAgentWakeup re-invokes a self-scheduling agent.
	EventAgentWakeup
	// EventSimStart/EventSimEnd bookend the run in the event log; they
	// carry no simulation semantics of their own.
	EventSimStart
	EventSimEnd
)

func (e EventType) String() string {
	switch e {
	case EventOrderSubmission:
		return "ORDER_SUBMISSION"
	case EventOrderQueued:
		return "ORDER_QUEUED"
	case EventMarketData:
		return "MARKET_DATA"
	case EventSnapshotRequest:
		return "SNAPSHOT_REQUEST"
	case EventSnapshotResponse:
		return "SNAPSHOT_RESPONSE"
	case EventAgentWakeup:
		return "AGENT_WAKEUP"
	case EventSimStart:
		return "SIM_START"
	case EventSimEnd:
		return "SIM_END"
	default:
		return "UNKNOWN"
	}
}

// Event is the unit the EventQueue schedules. Exactly one payload
// field is populated depending on Type; the rest are zero.
type Event struct {
	Time   int64 // virtual time this event fires at
	SeqNo  uint64
	Type   EventType
	Symbol string

	Order  *Order
	Trade  *Trade
	Target AgentIndex // recipient for MarketData / Snapshot* / Wakeup

	// SnapshotDepth/SnapshotView carry the request depth and the
	// captured response payload respectively.
	SnapshotDepth int
	SnapshotView  *BookView

	// RequestTime is the fire time of the paired EventSnapshotRequest,
	// preserved on the response so handlers can distinguish "sampled
	// at" from "delivered at".
	RequestTime int64
}
