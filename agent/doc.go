// Package agent implements the tool-calling turn loop.
//
// An Agent owns a model client, a tool registry and an immutable Config.
// Each call to Run drives one turn over a caller-owned core.Thread:
//
//  1. the user input is appended and turn_started is published
//  2. the model is called under the retry policy (streaming chunks when enabled)
//  3. if the model requested tools they run in a tool phase, their results are
//     appended as tool messages and the loop returns to step 2
//  4. otherwise the answer is appended and turn_completed is published
//
// Every iteration consumes one unit of the turn's budget. Terminal failures
// are returned as *RunError and also published as an error event with
// source "turn". Tool failures never end a turn; they are reported to the
// model as failed tool messages.
//
// Events go to the agent's eventbus.Bus and are recorded on the thread in
// the same order observers receive them.
package agent
