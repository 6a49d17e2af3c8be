package rtc

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/datachannel"
	"github.com/pion/logging"
)

const dataChannelBufferSize = 16384 // matches the maximum DCEP client message size

// DataChannelMessage represents a message received from a data channel.
// IsString is true when the peer sent it over the string payload protocol
// identifier.
type DataChannelMessage struct {
	IsString bool
	Data     []byte
}

// channelStream is the stream surface a channel reads and writes.
// *datachannel.DataChannel satisfies it.
type channelStream interface {
	ReadDataChannel([]byte) (int, bool, error)
	WriteDataChannel([]byte, bool) (int, error)
	Close() error
}

// DataChannel represents a bidirectional message channel multiplexed onto
// one SCTP stream.
type DataChannel struct {
	mu sync.Mutex

	streamID    uint16
	label       string
	protocol    string
	reliability Reliability

	readyState DataChannelState

	onOpen    func()
	onMessage func(DataChannelMessage)
	onClose   func()

	openedOnce sync.Once

	raw channelStream
	log logging.LeveledLogger
}

func newDataChannel(streamID uint16, label, protocol string, reliability Reliability, log logging.LeveledLogger) *DataChannel {
	return &DataChannel{
		streamID:    streamID,
		label:       label,
		protocol:    protocol,
		reliability: reliability,
		readyState:  DataChannelStateConnecting,
		log:         log,
	}
}

// StreamID returns the SCTP stream identifier the channel is bound to.
func (d *DataChannel) StreamID() uint16 {
	return d.streamID
}

// Label returns the channel label.
func (d *DataChannel) Label() string {
	return d.label
}

// Protocol returns the channel subprotocol.
func (d *DataChannel) Protocol() string {
	return d.protocol
}

// Reliability returns the delivery guarantees the channel was created with.
func (d *DataChannel) Reliability() Reliability {
	return d.reliability
}

// ReadyState returns the channel state.
func (d *DataChannel) ReadyState() DataChannelState {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.readyState
}

// OnOpen sets a handler invoked when the underlying stream is established.
func (d *DataChannel) OnOpen(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOpen = f
}

// OnMessage sets a handler invoked for every inbound message.
func (d *DataChannel) OnMessage(f func(DataChannelMessage)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onMessage = f
}

// OnClose sets a handler invoked when the peer resets the stream or the
// channel is closed locally.
func (d *DataChannel) OnClose(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onClose = f
}

// handleOpen binds the channel to its established stream, transitions it to
// open and starts the read loop. Repeated calls are ignored.
func (d *DataChannel) handleOpen(raw channelStream) {
	d.openedOnce.Do(func() {
		d.mu.Lock()
		d.raw = raw
		d.readyState = DataChannelStateOpen
		onOpen := d.onOpen
		d.mu.Unlock()

		// The handler runs before the read loop starts so it can still
		// register OnMessage without missing the first message.
		if onOpen != nil {
			onOpen()
		}

		go d.readLoop()
	})
}

func (d *DataChannel) readLoop() {
	buffer := make([]byte, dataChannelBufferSize)
	for {
		n, isString, err := d.raw.ReadDataChannel(buffer)
		if err != nil {
			if errors.Is(err, io.ErrShortBuffer) {
				d.log.Warnf("datachannel %d: inbound message larger than %d bytes, dropped", d.streamID, dataChannelBufferSize)

				continue
			}
			d.setClosed()

			return
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		d.mu.Lock()
		onMessage := d.onMessage
		d.mu.Unlock()

		if onMessage == nil {
			d.log.Debugf("datachannel %d: no message handler, dropping %d bytes", d.streamID, n)

			continue
		}
		onMessage(DataChannelMessage{IsString: isString, Data: data})
	}
}

func (d *DataChannel) setClosed() {
	d.mu.Lock()
	if d.readyState == DataChannelStateClosed {
		d.mu.Unlock()

		return
	}
	d.readyState = DataChannelStateClosed
	onClose := d.onClose
	d.mu.Unlock()

	if onClose != nil {
		onClose()
	}
}

// Send sends the binary message. A zero length message is padded to a
// single zero byte so the empty message survives the wire encoding.
func (d *DataChannel) Send(data []byte) error {
	return d.send(data, false)
}

// SendText sends the text message.
func (d *DataChannel) SendText(text string) error {
	return d.send([]byte(text), true)
}

func (d *DataChannel) send(data []byte, isString bool) error {
	d.mu.Lock()
	raw := d.raw
	state := d.readyState
	d.mu.Unlock()

	if state != DataChannelStateOpen || raw == nil {
		return ErrDataChannelNotOpen
	}

	if len(data) == 0 {
		data = []byte{0}
	}
	_, err := raw.WriteDataChannel(data, isString)

	return err
}

// Close resets the underlying stream.
func (d *DataChannel) Close() error {
	d.mu.Lock()
	raw := d.raw
	d.mu.Unlock()

	d.setClosed()

	if raw != nil {
		return raw.Close()
	}

	return nil
}

// channelConfig derives the DCEP configuration datachannel.Dial needs for
// this channel.
func (d *DataChannel) channelConfig(loggerFactory logging.LoggerFactory) *datachannel.Config {
	channelType, reliabilityParameter := d.reliability.channelType()

	return &datachannel.Config{
		ChannelType:          channelType,
		Negotiated:           false,
		Priority:             datachannel.ChannelPriorityNormal,
		ReliabilityParameter: reliabilityParameter,
		Label:                d.label,
		Protocol:             d.protocol,
		LoggerFactory:        loggerFactory,
	}
}
