package cue

import (
	"github.com/kelindar/event"
)

// Sound asset names.
const (
	Wake = "wake"
)

const typeCue uint32 = 1

// Cue asks for one sound to be played, best effort.
type Cue struct {
	Sound string
}

func (c Cue) Type() uint32 { return typeCue }

// Trigger is the reactor-facing side of the bus: dispatch and forget.
type Trigger interface {
	Trigger(sound string)
}

func NewBus() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

type Bus struct {
	dispatcher *event.Dispatcher
}

func (b *Bus) Trigger(sound string) {
	event.Publish(b.dispatcher, Cue{Sound: sound})
}

// Subscribe registers a handler and returns its unsubscribe func.
func (b *Bus) Subscribe(handler func(Cue)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
