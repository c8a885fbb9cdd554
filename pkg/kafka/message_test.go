package kafka

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-1").
		WithValue(map[string]string{"type": "booking.created"}).
		WithEventType("booking.created").
		WithSource("bookings").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "booking-1", msg.Key)
	assert.JSONEq(t, `{"type":"booking.created"}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
	assert.Equal(t, "booking.created", msg.GetEventType())
}

func TestMessageBuilder_EncodeError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Error(t, err)
}

func TestIncrementRetryCount_PastSingleDigit(t *testing.T) {
	msg := Message{Headers: map[string]string{}}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestDecodeValue_MalformedIsPermanent(t *testing.T) {
	msg := Message{Value: []byte(`{not json`)}
	var v map[string]any
	err := msg.DecodeValue(&v)
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeUnknown},
		{errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{errors.New("I/O TIMEOUT"), ErrorTypeTransient},
		{NewTransientError("mongo down", errors.New("x")), ErrorTypeTransient},
		{NewPermanentError("bad payload", nil), ErrorTypePermanent},
		{errors.New("unknown event type"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyError(tt.err), "%v", tt.err)
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("x", nil)
	assert.True(t, ShouldRetry(transient, 0, 3))
	assert.False(t, ShouldRetry(transient, 3, 3))
	assert.False(t, ShouldRetry(NewPermanentError("x", nil), 0, 3))
	assert.False(t, ShouldRetry(nil, 0, 3))
}
