// Package report implements spec.md §4.3's Report production and
// delivery: every chip's edge sampler and transmission engine hand their
// Reports to a Dispatcher, which fans them out to Notifiers subscribed
// by (chip, line) topic over internal/bus — the same trie pub/sub the
// teacher uses for MQTT-shaped fan-out, repurposed here with
// (chip, line) tuples as the topic alphabet instead of string segments.
package report

import (
	"sync"
	"sync/atomic"

	"github.com/sbcgo/rgpiod/internal/bus"
	"github.com/sbcgo/rgpiod/internal/gpiochip"
)

const defaultNotifierDepth = 4096

// wildcard tokens for the (chip, line) topic alphabet. They are values of
// private struct types, so no real chip or line number can compare equal
// to them, which makes them safe as the bus's single- and multi-level
// wildcard markers.
var (
	singleWildcard any = struct{ sw byte }{}
	multiWildcard  any = struct{ mw byte }{}
)

// Record is the wire-independent shape of one delivered report: spec.md
// §3's Report plus the monotonically increasing per-notifier sequence
// number and an overflow marker for gaps caused by drop-oldest
// backpressure.
type Record struct {
	Seq         uint64
	TimestampNS uint64
	Chip        uint16
	Line        uint16
	Level       uint8
	Flags       uint8
	Overflow    bool
}

// Dispatcher owns the bus every chip publishes Reports onto.
type Dispatcher struct {
	b *bus.Bus
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{b: bus.New(defaultNotifierDepth, singleWildcard, multiWildcard)}
}

// Publish is wired as a Chip's Dispatch callback.
func (d *Dispatcher) Publish(chipID uint16, r gpiochip.Report) {
	topic := bus.T(chipID, r.Line)
	d.b.Publish(d.b.NewMessage(topic, r, false))
}

// Notifier is a subscriber over one or more lines; it matches spec.md
// §4.3/§7's notification channel: an ordered stream of Records with a
// bounded queue, drop-oldest under pressure, and an overflow marker on
// the record that follows a drop so a consumer can detect the gap.
type Notifier struct {
	mu       sync.Mutex
	conn     *bus.Connection
	subs     []*bus.Subscription
	out      chan Record
	seq      atomic.Uint64
	dropSeen atomic.Bool
	paused   atomic.Bool
	done     chan struct{}
}

// Pause stops records from reaching Records() without unsubscribing;
// Resume lets them through again (spec.md §3 Notifier "paused/resumed
// flag").
func (n *Notifier) Pause()  { n.paused.Store(true) }
func (n *Notifier) Resume() { n.paused.Store(false) }

// NewNotifier subscribes to every (chip, line) pair in lines; an empty
// lines list subscribes to every chip and line (both wildcard levels).
func (d *Dispatcher) NewNotifier(lines []gpiochip.ChipLine, depth int) *Notifier {
	if depth <= 0 {
		depth = 256
	}
	n := &Notifier{
		conn: d.b.NewConnection(),
		out:  make(chan Record, depth),
		done: make(chan struct{}),
	}
	if len(lines) == 0 {
		n.addSub(bus.T(multiWildcard))
	} else {
		for _, cl := range lines {
			n.addSub(bus.T(cl.Chip, cl.Line))
		}
	}
	for _, sub := range n.subs {
		go n.pump(sub)
	}
	return n
}

func (n *Notifier) addSub(topic bus.Topic) {
	sub := n.conn.Subscribe(topic)
	n.mu.Lock()
	n.subs = append(n.subs, sub)
	n.mu.Unlock()
}

func (n *Notifier) pump(sub *bus.Subscription) {
	for {
		select {
		case <-n.done:
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			r, ok := msg.Payload.(gpiochip.Report)
			if !ok {
				continue
			}
			if n.paused.Load() {
				continue
			}
			rec := Record{
				Seq:         n.seq.Add(1),
				TimestampNS: r.TimestampNS,
				Chip:        r.Chip,
				Line:        r.Line,
				Level:       r.Level,
				Flags:       r.Flags,
			}
			n.deliver(rec)
		}
	}
}

func (n *Notifier) deliver(rec Record) {
	if n.dropSeen.CompareAndSwap(true, false) {
		rec.Overflow = true
	}
	select {
	case n.out <- rec:
		return
	default:
	}
	select {
	case <-n.out:
	default:
	}
	n.dropSeen.Store(true)
	select {
	case n.out <- rec:
	default:
	}
}

// Records is the consumer-facing channel of delivered Records.
func (n *Notifier) Records() <-chan Record { return n.out }

// Done closes when the Notifier has been torn down by Close, letting a
// FIFO pump stop waiting on Records without needing n.out itself closed.
func (n *Notifier) Done() <-chan struct{} { return n.done }

// Close tears down every subscription this Notifier holds.
func (n *Notifier) Close() {
	select {
	case <-n.done:
		return
	default:
		close(n.done)
	}
	n.conn.Disconnect()
}
