package runner

import (
	"github.com/nickyhof/BatchDB/core"
)

type CommandType int

const (
	BatchCommand CommandType = iota
	CloseCommand
	StopCommand
)

func (t CommandType) String() string {
	switch t {
	case BatchCommand:
		return "batch"
	case CloseCommand:
		return "close"
	case StopCommand:
		return "stop"
	default:
		return "unknown"
	}
}

// Command is one entry of a worker's queue. Reply is the originator; it
// is nil for Stop.
type Command struct {
	Type       CommandType
	Statements []core.Statement
	Delete     bool
	Reply      chan<- Reply
}

// Reply is delivered exactly once to the originator of a request. Err is
// set for request level failures, in which case Outcomes is nil.
type Reply struct {
	Outcomes []core.Outcome
	Err      error
}

func newReply() chan Reply {
	return make(chan Reply, 1)
}

func replied(err error) <-chan Reply {
	reply := newReply()
	reply <- Reply{Err: err}
	return reply
}

func deliver(reply chan<- Reply, r Reply) {
	if reply != nil {
		reply <- r
	}
}
