// SPDX-License-Identifier: MIT
package acquisition

import "fmt"

// State is a step of the acquisition lifecycle.
type State int

const (
	Idle State = iota
	StartingCapture
	AwaitingStream
	AwaitingUserStart
	Streaming
	Stopping
	Terminated
	// Fatal is absorbing: a session that fails before streaming ends here.
	Fatal
)

var stateNames = [...]string{
	Idle:              "Idle",
	StartingCapture:   "StartingCapture",
	AwaitingStream:    "AwaitingStream",
	AwaitingUserStart: "AwaitingUserStart",
	Streaming:         "Streaming",
	Stopping:          "Stopping",
	Terminated:        "Terminated",
	Fatal:             "Fatal",
}

func (s State) String() string {
	if s < Idle || s > Fatal {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}
