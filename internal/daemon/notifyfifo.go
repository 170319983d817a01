//go:build linux

package daemon

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/sbcgo/rgpiod/internal/handle"
	"github.com/sbcgo/rgpiod/internal/report"
)

// notifyFlagOverflow marks a record that follows a drop-oldest gap; it
// occupies a bit above gpiochip's Report flags (which only use the low
// nibble) so the two flag spaces never collide on the wire.
const notifyFlagOverflow uint16 = 1 << 8

// makeNotifyFIFO creates the named pipe a notifier's Records are written
// to; the client is expected to open the same path for reading (spec.md
// §4.4).
func (s *Server) makeNotifyFIFO(h handle.Handle) (string, error) {
	dir := s.cfg.NotifyDir
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, fmt.Sprintf("rgpiod-notify-%08x", uint32(h)))
	os.Remove(path)
	if err := unix.Mkfifo(path, 0600); err != nil {
		return "", err
	}
	return path, nil
}

// pumpNotifyFIFO opens path for writing (blocking until a reader
// attaches) and encodes every delivered Record onto it until the
// notifier is closed.
func (s *Server) pumpNotifyFIFO(path string, n *report.Notifier) {
	defer os.Remove(path)
	f, err := os.OpenFile(path, os.O_WRONLY, os.ModeNamedPipe)
	if err != nil {
		log.Printf("notify fifo %s: %v", path, err)
		return
	}
	defer f.Close()
	for {
		select {
		case <-n.Done():
			return
		case rec := <-n.Records():
			flags := uint16(rec.Flags)
			if rec.Overflow {
				flags |= notifyFlagOverflow
			}
			buf := NotificationRecord{
				Sequence:    uint32(rec.Seq),
				Flags:       flags,
				Chip:        rec.Chip,
				Line:        uint32(rec.Line),
				TimestampNS: rec.TimestampNS,
				Level:       rec.Level,
			}.Encode()
			if _, err := f.Write(buf[:]); err != nil {
				return
			}
		}
	}
}
