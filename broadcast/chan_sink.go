package broadcast

import "snakeball-backend/protocol"

// ChanSink queues JSON frames on a buffered channel drained by a writer
// goroutine. A full buffer drops the frame instead of blocking the room.
type ChanSink struct {
	C chan []byte
}

func NewChanSink(size int) *ChanSink {
	return &ChanSink{C: make(chan []byte, size)}
}

func (s *ChanSink) Codec() protocol.Codec {
	return protocol.JSONCodec{}
}

func (s *ChanSink) Send(frame []byte) error {
	select {
	case s.C <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}
