package communication

import (
	"encoding/json"
	"errors"
	"fmt"

	"connect4/game"
	"github.com/google/uuid"
)

var ErrMalformedMessage = errors.New("malformed message")

// Tag identifies a message kind on the wire.
type Tag int

const (
	TagTask      Tag = 1
	TagResult    Tag = 2
	TagTerminate Tag = 3
)

// Message is one of Task, Result or Terminate.
type Message interface {
	Tag() Tag
}

// Task asks a worker to evaluate Board to the remaining Depth. Board carries
// the last mover and last column the evaluation starts from.
type Task struct {
	Search uuid.UUID  `json:"search"`
	Node   int        `json:"node"`
	Board  game.Board `json:"board"`
	Depth  int        `json:"depth"`
}

// Result is a worker's answer to exactly one Task.
type Result struct {
	Search uuid.UUID `json:"search"`
	Node   int       `json:"node"`
	Value  float64   `json:"value"`
}

// Terminate tells a worker to leave its receive loop.
type Terminate struct{}

func (Task) Tag() Tag      { return TagTask }
func (Result) Tag() Tag    { return TagResult }
func (Terminate) Tag() Tag { return TagTerminate }

type envelope struct {
	Tag    Tag     `json:"tag"`
	Task   *Task   `json:"task,omitempty"`
	Result *Result `json:"result,omitempty"`
}

func Encode(msg Message) ([]byte, error) {
	env := envelope{}
	switch m := msg.(type) {
	case Task:
		env.Tag, env.Task = TagTask, &m
	case Result:
		env.Tag, env.Result = TagResult, &m
	case Terminate:
		env.Tag = TagTerminate
	default:
		return nil, fmt.Errorf("encode %T: %w", msg, ErrMalformedMessage)
	}
	return json.Marshal(env)
}

func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch env.Tag {
	case TagTask:
		if env.Task == nil {
			return nil, fmt.Errorf("task without payload: %w", ErrMalformedMessage)
		}
		if env.Task.Depth < 0 {
			return nil, fmt.Errorf("task depth %d: %w", env.Task.Depth, ErrMalformedMessage)
		}
		return *env.Task, nil
	case TagResult:
		if env.Result == nil {
			return nil, fmt.Errorf("result without payload: %w", ErrMalformedMessage)
		}
		return *env.Result, nil
	case TagTerminate:
		return Terminate{}, nil
	default:
		return nil, fmt.Errorf("unknown tag %d: %w", env.Tag, ErrMalformedMessage)
	}
}
