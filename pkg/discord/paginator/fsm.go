package paginator

import (
	"strconv"
	"strings"
)

// State is the lifecycle position of a pagination session.
type State int

const (
	StateActive State = iota
	StateAwaitingPage
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateAwaitingPage:
		return "awaiting_page"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// EventKind enumerates what can happen to a session.
type EventKind int

const (
	EventForward EventKind = iota
	EventBackward
	EventJumpRequest
	EventPageReply
	EventReplyTimeout
	EventIdleTimeout
)

func (k EventKind) String() string {
	switch k {
	case EventForward:
		return "forward"
	case EventBackward:
		return "backward"
	case EventJumpRequest:
		return "jump"
	case EventPageReply:
		return "page_reply"
	case EventReplyTimeout:
		return "reply_timeout"
	case EventIdleTimeout:
		return "idle_timeout"
	default:
		return "unknown"
	}
}

// Event is a typed input routed to a session. UserID is empty for timeouts.
type Event struct {
	Kind   EventKind
	UserID string
	// Text carries the raw reply for EventPageReply.
	Text string
}

// Effect tells the session what side effect a transition requires.
type Effect int

const (
	EffectNone Effect = iota
	EffectRender
	EffectPrompt
	EffectRejectReply
	EffectReplyTimedOut
	EffectExpire
)

// Outcome is the result of applying one event.
type Outcome struct {
	Effect Effect
	// Accepted is true when the event qualified as an interaction, even if it
	// left the page unchanged (forward on the last page).
	Accepted bool
}

// Machine is the pure pagination state machine. It performs no I/O.
type Machine struct {
	total    int
	index    int
	owner    string
	state    State
	awaiting string
}

// NewMachine starts in Active(0). total must be at least 1.
func NewMachine(total int, owner string) *Machine {
	if total < 1 {
		total = 1
	}
	return &Machine{total: total, owner: owner, state: StateActive}
}

func (m *Machine) State() State        { return m.state }
func (m *Machine) Index() int          { return m.index }
func (m *Machine) Total() int          { return m.total }
func (m *Machine) AwaitingFor() string { return m.awaiting }

// Apply advances the machine. Events from anyone but the owner and events
// that do not apply to the current state are ignored.
func (m *Machine) Apply(ev Event) Outcome {
	if m.state == StateExpired {
		return Outcome{}
	}
	switch ev.Kind {
	case EventForward, EventBackward, EventJumpRequest, EventPageReply:
		if ev.UserID != m.owner {
			return Outcome{}
		}
	}

	switch m.state {
	case StateActive:
		return m.applyActive(ev)
	case StateAwaitingPage:
		return m.applyAwaiting(ev)
	}
	return Outcome{}
}

func (m *Machine) applyActive(ev Event) Outcome {
	switch ev.Kind {
	case EventForward:
		if m.index < m.total-1 {
			m.index++
			return Outcome{Effect: EffectRender, Accepted: true}
		}
		return Outcome{Accepted: true}
	case EventBackward:
		if m.index > 0 {
			m.index--
			return Outcome{Effect: EffectRender, Accepted: true}
		}
		return Outcome{Accepted: true}
	case EventJumpRequest:
		if m.total < 2 {
			return Outcome{}
		}
		m.state = StateAwaitingPage
		m.awaiting = ev.UserID
		return Outcome{Effect: EffectPrompt, Accepted: true}
	case EventIdleTimeout:
		m.state = StateExpired
		return Outcome{Effect: EffectExpire}
	}
	return Outcome{}
}

func (m *Machine) applyAwaiting(ev Event) Outcome {
	switch ev.Kind {
	case EventPageReply:
		if ev.UserID != m.awaiting {
			return Outcome{}
		}
		m.state = StateActive
		m.awaiting = ""
		page, ok := ParsePageNumber(ev.Text, m.total)
		if !ok {
			return Outcome{Effect: EffectRejectReply, Accepted: true}
		}
		if page-1 == m.index {
			return Outcome{Accepted: true}
		}
		m.index = page - 1
		return Outcome{Effect: EffectRender, Accepted: true}
	case EventReplyTimeout:
		m.state = StateActive
		m.awaiting = ""
		return Outcome{Effect: EffectReplyTimedOut}
	}
	return Outcome{}
}

// ParsePageNumber accepts a 1-based page number in [1, total].
func ParsePageNumber(text string, total int) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 1 || n > total {
		return 0, false
	}
	return n, true
}
