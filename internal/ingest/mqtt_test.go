package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMQTTMessage struct {
	payload []byte
}

func (m *fakeMQTTMessage) Duplicate() bool   { return false }
func (m *fakeMQTTMessage) Qos() byte         { return 1 }
func (m *fakeMQTTMessage) Retained() bool    { return false }
func (m *fakeMQTTMessage) Topic() string     { return "asr/recordings" }
func (m *fakeMQTTMessage) MessageID() uint16 { return 1 }
func (m *fakeMQTTMessage) Payload() []byte   { return m.payload }
func (m *fakeMQTTMessage) Ack()              {}

func TestMQTTReceiverTopic(t *testing.T) {
	r := newMQTTReceiver(MQTTConfig{Topic: "asr/recordings", Group: "savers"}, nil)
	assert.Equal(t, "$share/savers/asr/recordings", r.topic())

	r = newMQTTReceiver(MQTTConfig{Topic: "asr/recordings"}, nil)
	assert.Equal(t, "asr/recordings", r.topic())
}

func TestMQTTReceiverDeliversCopies(t *testing.T) {
	r := newMQTTReceiver(MQTTConfig{Buffer: 2}, nil)

	payload := []byte("first")
	r.onMessage(nil, &fakeMQTTMessage{payload: payload})
	r.onMessage(nil, &fakeMQTTMessage{payload: []byte("second")})
	payload[0] = 'X'

	got, err := r.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	got, err = r.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestMQTTReceiverHonoursContext(t *testing.T) {
	r := newMQTTReceiver(MQTTConfig{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMQTTReceiverClose(t *testing.T) {
	r := newMQTTReceiver(MQTTConfig{Buffer: 1}, nil)
	r.onMessage(nil, &fakeMQTTMessage{payload: []byte("a")})

	blocked := make(chan struct{})
	go func() {
		// buffer is full, so this blocks until Close
		r.onMessage(nil, &fakeMQTTMessage{payload: []byte("b")})
		close(blocked)
	}()

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("handler still blocked after Close")
	}

	// a closed receiver may still hand out a buffered message or report closure
	for i := 0; i < 2; i++ {
		if _, err := r.Receive(context.Background()); err != nil {
			assert.ErrorIs(t, err, ErrReceiverClosed)
			return
		}
	}
	t.Fatal("receiver never reported closure")
}
