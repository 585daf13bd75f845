package session

import (
	"fmt"

	"github.com/hpungsan/parley/internal/errors"
	"github.com/hpungsan/parley/internal/transcript"
)

// Command is one inbound control message. The concrete types are
// StartCommand, IngestCommand and EndCommand.
type Command interface {
	isCommand()
}

type StartCommand struct {
	Platform string `json:"platform"`
}

type IngestCommand struct {
	Event transcript.RawEvent `json:"event"`
}

type EndCommand struct{}

func (StartCommand) isCommand()  {}
func (IngestCommand) isCommand() {}
func (EndCommand) isCommand()    {}

// Reply is the synchronous answer to a Command. Only the field matching the
// command is set.
type Reply struct {
	State   State         `json:"state"`
	Ingest  *IngestResult `json:"ingest,omitempty"`
	Summary *Summary      `json:"summary,omitempty"`
}

// Handle routes cmd to Start, Ingest or End.
func (s *Session) Handle(cmd Command) (Reply, error) {
	switch c := cmd.(type) {
	case StartCommand:
		if err := s.Start(c.Platform); err != nil {
			return Reply{State: s.State()}, err
		}
		return Reply{State: s.State()}, nil
	case IngestCommand:
		res, err := s.Ingest(c.Event)
		if err != nil {
			return Reply{State: s.State()}, err
		}
		return Reply{State: s.State(), Ingest: &res}, nil
	case EndCommand:
		sum, err := s.End()
		if err != nil {
			return Reply{State: s.State()}, err
		}
		return Reply{State: s.State(), Summary: &sum}, nil
	default:
		return Reply{State: s.State()}, errors.NewInvalidRequest(fmt.Sprintf("unknown command %T", cmd))
	}
}
