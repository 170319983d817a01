package report

import (
	"testing"
	"time"

	"github.com/sbcgo/rgpiod/internal/gpiochip"
)

func TestDispatchDeliversToMatchingLine(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier([]gpiochip.ChipLine{{Chip: 1, Line: 2}}, 8)
	defer n.Close()

	d.Publish(1, gpiochip.Report{Chip: 1, Line: 2, Level: 1, Flags: gpiochip.ReportFlagEdge})

	select {
	case rec := <-n.Records():
		if rec.Chip != 1 || rec.Line != 2 || rec.Seq != 1 {
			t.Errorf("unexpected record: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a matching report")
	}
}

func TestDispatchIgnoresOtherLines(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier([]gpiochip.ChipLine{{Chip: 1, Line: 2}}, 8)
	defer n.Close()

	d.Publish(1, gpiochip.Report{Chip: 1, Line: 3, Level: 1})

	select {
	case rec := <-n.Records():
		t.Fatalf("unexpected delivery for an unsubscribed line: %+v", rec)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestEmptyLinesSubscribesToEverything(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier(nil, 8)
	defer n.Close()

	d.Publish(5, gpiochip.Report{Chip: 5, Line: 9, Level: 1})

	select {
	case rec := <-n.Records():
		if rec.Chip != 5 || rec.Line != 9 {
			t.Errorf("unexpected record: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for a wildcard-subscribed report")
	}
}

func TestPauseSuppressesDelivery(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier([]gpiochip.ChipLine{{Chip: 1, Line: 1}}, 8)
	defer n.Close()

	n.Pause()
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})

	select {
	case rec := <-n.Records():
		t.Fatalf("unexpected delivery while paused: %+v", rec)
	case <-time.After(30 * time.Millisecond):
	}

	n.Resume()
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})
	select {
	case <-n.Records():
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for delivery after resume")
	}
}

func TestDropOldestSetsOverflowFlag(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier([]gpiochip.ChipLine{{Chip: 1, Line: 1}}, 1)
	defer n.Close()

	n.Pause()
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})
	// paused: dropped at the pump, not queued, so queue is empty here.
	n.Resume()

	// Three reports into a one-slot queue with nobody reading: the second
	// drops the first, and the third drops the second and carries the
	// overflow marker for the earlier drop.
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})
	d.Publish(1, gpiochip.Report{Chip: 1, Line: 1, Level: 1})
	time.Sleep(50 * time.Millisecond)

	select {
	case rec := <-n.Records():
		if !rec.Overflow {
			t.Fatalf("expected the queued record to carry the overflow marker, got %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for queued records")
	}
}

func TestCloseStopsNotifier(t *testing.T) {
	d := NewDispatcher()
	n := d.NewNotifier([]gpiochip.ChipLine{{Chip: 1, Line: 1}}, 8)
	n.Close()

	select {
	case <-n.Done():
	default:
		t.Fatal("expected Done() to be closed after Close")
	}
}
