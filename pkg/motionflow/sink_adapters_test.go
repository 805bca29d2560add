package motionflow

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackSink(t *testing.T) {
	var received []Reading
	sink := NewCallbackSink("cb", func(batch []Reading) error {
		received = append(received, batch...)
		return nil
	})

	acc := 3.0
	input := &Reading{
		DeviceID:  "watch-1",
		Sensor:    "gyroscope",
		MessageID: 42,
		Accuracy:  &acc,
		Values:    Values{"x": 3.14},
	}

	if err := sink.WriteBatch([]*Reading{input}); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 batch entry, got %d", len(received))
	}
	got := received[0]
	if got.DeviceID != input.DeviceID || got.MessageID != input.MessageID {
		t.Fatalf("mismatched reading payload: %+v vs %+v", got, input)
	}
	if got.Values["x"] != 3.14 {
		t.Fatalf("expected value to be copied, got %v", got.Values["x"])
	}

	got.Values["x"] = 0
	*got.Accuracy = 0
	if input.Values["x"] != 3.14 || *input.Accuracy != 3 {
		t.Fatalf("callback mutation leaked into the queued reading")
	}
	if sink.Name() != "cb" {
		t.Fatalf("unexpected name %q", sink.Name())
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if sink.Name() != "callback" {
		t.Fatalf("expected default name, got %q", sink.Name())
	}
	if err := sink.WriteBatch([]*Reading{{Sensor: "compass"}}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := &Reading{Sensor: "microphone", MessageID: 7}
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteBatch([]*Reading{input})
	}()

	var batch []Reading
	select {
	case batch = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel batch")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(batch) != 1 || batch[0].MessageID != input.MessageID {
		t.Fatalf("unexpected batch data: %+v", batch)
	}

	closeFn()
	closeFn()
	if err := sink.WriteBatch([]*Reading{input}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkCloseUnblocksWriter(t *testing.T) {
	sink, _, closeFn := NewChannelSink("", 0)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sink.WriteBatch([]*Reading{{Sensor: "gravity"}})
	}()

	time.Sleep(10 * time.Millisecond)
	closeFn()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrChannelSinkClosed) {
			t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("writer stayed blocked after close")
	}
}
