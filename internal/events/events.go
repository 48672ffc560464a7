// Package events is the outcome port between the core and whatever
// notification surface sits on top of it. The core publishes typed outcome
// events; the presentation layer decides how to show them. The core never
// depends on a concrete notification implementation.
package events

type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

type Event struct {
	Kind     Kind
	Category string
	Message  string
}

// Publisher receives outcome events. Implementations must not block.
type Publisher interface {
	Publish(Event)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// Discard drops every event; used where no listener is wired.
var Discard Publisher = PublisherFunc(func(Event) {})

func Success(message string) Event {
	return Event{Kind: KindSuccess, Message: message}
}

func Failure(category, message string) Event {
	return Event{Kind: KindFailure, Category: category, Message: message}
}
