package messenger

import (
	"fmt"

	"github.com/openprojection/headunit-go/pkg/wire"
)

// assembler rebuilds one channel's messages from its frame sequence.
// Frames of different channels may interleave freely on the wire;
// frames of one channel must follow first/middle/last order.
type assembler struct {
	active    bool
	total     uint32
	encrypted bool
	control   bool
	buf       []byte
}

// add consumes one decrypted frame payload. It returns the completed
// message when the frame finishes one, nil otherwise.
func (a *assembler) add(h wire.FrameHeader, total uint32, payload []byte) (*wire.Message, error) {
	switch h.Kind {
	case wire.FrameBulk:
		if a.active {
			return nil, fmt.Errorf("%w: bulk while %d bytes in flight", wire.ErrFrameOrder, len(a.buf))
		}
		return wire.ParseMessage(h.Channel, payload, h.Encrypted, h.Control)

	case wire.FrameFirst:
		if a.active {
			return nil, fmt.Errorf("%w: first while %d bytes in flight", wire.ErrFrameOrder, len(a.buf))
		}
		a.active = true
		a.total = total
		a.encrypted = h.Encrypted
		a.control = h.Control
		a.buf = append(a.buf[:0], payload...)
		return nil, a.checkSize()

	case wire.FrameMiddle:
		if !a.active {
			return nil, fmt.Errorf("%w: middle without first", wire.ErrFrameOrder)
		}
		if h.Encrypted != a.encrypted {
			return nil, fmt.Errorf("%w: encryption flag changed mid-message", wire.ErrFrameOrder)
		}
		a.buf = append(a.buf, payload...)
		return nil, a.checkSize()

	case wire.FrameLast:
		if !a.active {
			return nil, fmt.Errorf("%w: last without first", wire.ErrFrameOrder)
		}
		if h.Encrypted != a.encrypted {
			return nil, fmt.Errorf("%w: encryption flag changed mid-message", wire.ErrFrameOrder)
		}
		a.buf = append(a.buf, payload...)
		if uint32(len(a.buf)) != a.total {
			return nil, fmt.Errorf("%w: reassembled %d bytes, declared %d",
				wire.ErrFrameOrder, len(a.buf), a.total)
		}
		msg, err := wire.ParseMessage(h.Channel, a.buf, a.encrypted, a.control)
		a.reset()
		return msg, err

	default:
		return nil, fmt.Errorf("%w: kind %d", wire.ErrFrameOrder, h.Kind)
	}
}

func (a *assembler) checkSize() error {
	if uint32(len(a.buf)) > a.total {
		return fmt.Errorf("%w: %d bytes exceed declared total %d",
			wire.ErrFrameTooLarge, len(a.buf), a.total)
	}
	return nil
}

func (a *assembler) reset() {
	a.active = false
	a.total = 0
	a.buf = nil
}
