// Package core provides the foundational domain types shared by every other
// miniagent package:
//
//   - Messages (role tagged transcript entries, tool call requests)
//   - Events (immutable, kind tagged lifecycle notifications)
//   - Thread (append-only conversation state with recorded events)
//   - IterationBudget (per turn model call limit)
//
// The package keeps orchestration, transport and tool execution out of scope so
// that the agent, eventbus, tool and model packages can depend on it without cycles.
package core
