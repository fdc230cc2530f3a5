package identity

import "sync"

// Provider holds the current identity and fans out changes to subscribers.
// Each subscriber channel has room for one value; a slow subscriber only
// ever sees the latest identity.
type Provider struct {
	mu      sync.Mutex
	current *Identity
	subs    map[int]chan *Identity
	nextID  int
}

func NewProvider() *Provider {
	return &Provider{subs: make(map[int]chan *Identity)}
}

// Current returns the signed-in identity or nil.
func (p *Provider) Current() *Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyIdentity(p.current)
}

// SignIn publishes id as the current identity. Signing in the same user again is a no-op.
func (p *Provider) SignIn(id *Identity) {
	if id == nil {
		p.SignOut()
		return
	}
	p.set(copyIdentity(id))
}

// SignOut publishes "no identity".
func (p *Provider) SignOut() {
	p.set(nil)
}

func (p *Provider) set(id *Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if Same(p.current, id) {
		p.current = id
		return
	}
	p.current = id
	for _, ch := range p.subs {
		offer(ch, copyIdentity(id))
	}
}

// Subscribe returns a channel that first receives the current identity and
// then every change. The returned func unsubscribes and closes the channel.
func (p *Provider) Subscribe() (<-chan *Identity, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan *Identity, 1)
	ch <- copyIdentity(p.current)
	p.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
			close(ch)
		})
	}
}

// offer replaces any undelivered value with v. Must be called with p.mu held.
func offer(ch chan *Identity, v *Identity) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func copyIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
