package core

import "sync"

// Client is a chat participant as seen by the core layer. The transport
// writes commands into Commands and drains Events; the hub does the reverse.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	done     chan struct{}
	stopOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		done:     make(chan struct{}),
	}
}

// Push delivers an event without blocking. Slow consumers drop events rather
// than stall the hub.
func (c *Client) Push(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// Done is closed once the hub has finished tearing the client down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
