// Package serialport implements the port enumerator (C1) and link manager
// (C2) of spec.md §4.1-§4.2: discovering, opening, configuring and
// maintaining the serial connection to the embedded device.
package serialport

import (
	"time"

	goserial "github.com/daedaluz/goserial"
)

// Baud is the fixed link speed required by spec.md §6.
const Baud = 115200

// ReadTimeout bounds individual port reads per spec.md §4.2. WriteTimeout
// is declared alongside it, but no write path applies it: port writes
// carry no timeout.
const (
	ReadTimeout  = 200 * time.Millisecond
	WriteTimeout = 500 * time.Millisecond
)

// rawPort is the minimal transport surface the link manager needs. It
// exists so tests can substitute an in-memory pipe instead of a real tty.
type rawPort interface {
	Write(data []byte) (int, error)
	ReadTimeout(data []byte, timeout time.Duration) (int, error)
	Close() error
	Flush(queue goserial.Queue) error
}

// openRealPort opens name at Baud/8-N-1 with DTR asserted and a
// ReadTimeout read timeout (no write timeout is set), via
// github.com/daedaluz/goserial's termios/ioctl
// wrapper - the one library in the retrieval pack that actually speaks to
// a tty.
func openRealPort(name string) (rawPort, error) {
	opts := goserial.NewOptions().SetReadTimeout(ReadTimeout)
	p, err := goserial.Open(name, opts)
	if err != nil {
		return nil, err
	}

	attrs, err := p.GetAttr2()
	if err != nil {
		p.Close()
		return nil, err
	}
	attrs.MakeRaw()
	attrs.SetSpeed(goserial.B115200)
	if err := p.SetAttr2(goserial.TCSANOW, attrs); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.EnableModemLines(goserial.TIOCM_DTR); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}
