package mailbox

import "sync"

type messageBus struct {
	mu          sync.Mutex
	subscribers map[string]func(Envelope)
	mailbox     map[string][]Envelope
}

var globalBus = &messageBus{
	subscribers: make(map[string]func(Envelope)),
	mailbox:     make(map[string][]Envelope),
}

func (b *messageBus) publish(env Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handler, ok := b.subscribers[env.Recipient]; ok {
		go handler(env)
		return
	}
	b.mailbox[env.Recipient] = append(b.mailbox[env.Recipient], env)
}

func (b *messageBus) subscribe(recipient string, handler func(Envelope)) {
	b.mu.Lock()
	b.subscribers[recipient] = handler
	pending := append([]Envelope(nil), b.mailbox[recipient]...)
	delete(b.mailbox, recipient)
	b.mu.Unlock()

	for _, env := range pending {
		handler(env)
	}
}

func (b *messageBus) unsubscribe(recipient string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, recipient)
}
