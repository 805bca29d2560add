package domain

import (
	"errors"
	"testing"
)

func TestParseBatch(t *testing.T) {
	raw := []byte(`{
  "messageId": 7,
  "sessionId": "s-1",
  "deviceId": "d-1",
  "payload": [
    {"name": "accelerometer", "time": 1700000000123456789, "values": {"x": 1, "y": 2.5, "z": -3}},
    {"name": "gyroscope", "time": 1.7e18, "values": {}},
    {"name": "microphone", "time": null, "values": {"dBFS": "loud"}, "accuracy": 3}
  ]
}`)

	b, err := ParseBatch(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b.MessageID != 7 || b.SessionID != "s-1" || b.DeviceID != "d-1" {
		t.Fatalf("unexpected envelope: %+v", b)
	}
	if len(b.Payload) != 3 {
		t.Fatalf("expected 3 events, got %d", len(b.Payload))
	}
	if b.Payload[0].Time != 1700000000123456789 {
		t.Fatalf("integer nanos lost precision: %d", b.Payload[0].Time)
	}
	if b.Payload[0].Values.Get("y") != 2.5 {
		t.Fatalf("expected y=2.5, got %v", b.Payload[0].Values.Get("y"))
	}
	if b.Payload[1].Time != Nanos(1.7e18) {
		t.Fatalf("float nanos not accepted: %d", b.Payload[1].Time)
	}
	if b.Payload[2].Time != 0 {
		t.Fatalf("null time should default to 0, got %d", b.Payload[2].Time)
	}
	if _, ok := b.Payload[2].Values["dBFS"]; ok {
		t.Fatalf("non-numeric value should be dropped")
	}
	if b.Payload[2].Accuracy == nil || *b.Payload[2].Accuracy != 3 {
		t.Fatalf("expected accuracy 3, got %v", b.Payload[2].Accuracy)
	}
}

func TestParseBatchToleratesOddFieldTypes(t *testing.T) {
	accel := `{"name":"accelerometer","time":1000,"values":{"x":1}}`
	cases := []struct {
		body      string
		messageID int64
		sessionID string
		deviceID  string
	}{
		{body: `{"sessionId":42,"payload":[` + accel + `]}`, sessionID: "42"},
		{body: `{"messageId":"7","payload":[` + accel + `]}`, messageID: 7},
		{body: `{"messageId":1.5,"payload":[` + accel + `]}`, messageID: 1},
		{body: `{"messageId":{"n":1},"deviceId":true,"sessionId":null,"payload":[` + accel + `]}`},
		{body: `{"deviceId":["a"],"payload":[` + accel + `]}`},
	}
	for _, tc := range cases {
		b, err := ParseBatch([]byte(tc.body))
		if err != nil {
			t.Fatalf("body %s: unexpected error %v", tc.body, err)
		}
		if b.MessageID != tc.messageID || b.SessionID != tc.sessionID || b.DeviceID != tc.deviceID {
			t.Fatalf("body %s: unexpected envelope %+v", tc.body, b)
		}
		if len(b.Payload) != 1 || b.Payload[0].Sensor() != SensorAccelerometer {
			t.Fatalf("body %s: payload lost: %+v", tc.body, b.Payload)
		}
	}
}

func TestParseBatchOddEventsBecomeUnknown(t *testing.T) {
	raw := []byte(`{"payload":[
		{"name":5,"values":{"x":1}},
		7,
		null,
		{"name":"compass","accuracy":"high","values":{"magneticBearing":10}},
		{"name":"gravity","accuracy":"2.5","values":{"x":9.8}},
		{"name":"accelerometer","time":1000,"values":{"x":1}}
	]}`)
	b, err := ParseBatch(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Payload) != 6 {
		t.Fatalf("expected 6 events, got %d", len(b.Payload))
	}
	for i := 0; i < 3; i++ {
		if b.Payload[i].Sensor() != SensorUnknown {
			t.Fatalf("event %d should be unknown, got %q", i, b.Payload[i].Name)
		}
	}
	if b.Payload[3].Sensor() != SensorCompass || b.Payload[3].Accuracy != nil {
		t.Fatalf("non-numeric accuracy should be absent: %+v", b.Payload[3])
	}
	if acc := b.Payload[4].Accuracy; acc == nil || *acc != 2.5 {
		t.Fatalf("numeric string accuracy should be kept, got %v", acc)
	}
	if b.Payload[5].Time != 1000 || b.Payload[5].Values.Get("x") != 1 {
		t.Fatalf("valid event damaged: %+v", b.Payload[5])
	}
}

func TestParseBatchRejectsMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", "{", "[]", "null", `{"payload": 3}`,
		`{"payload":[{"name":"accelerometer"`, `{"payload":[{"name":"accelerometer"}}`} {
		_, err := ParseBatch([]byte(body))
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("body %q: expected ParseError, got %v", body, err)
		}
	}
}

func TestParseBatchMissingPayload(t *testing.T) {
	b, err := ParseBatch([]byte(`{}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(b.Payload) != 0 || b.Readings() != nil {
		t.Fatalf("expected empty batch, got %+v", b)
	}
}

func TestBatchReadings(t *testing.T) {
	b := Batch{
		MessageID: 3,
		SessionID: "sess",
		DeviceID:  "dev",
		Payload: []SensorEvent{
			{Name: "compass", Time: 10, Values: Values{"magneticBearing": 90}},
		},
	}
	rs := b.Readings()
	if len(rs) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(rs))
	}
	r := rs[0]
	if r.DeviceID != "dev" || r.SessionID != "sess" || r.MessageID != 3 || r.Sensor != "compass" || r.Time != 10 {
		t.Fatalf("unexpected reading: %+v", r)
	}
}

func TestNanosSeconds(t *testing.T) {
	if got := Nanos(1_500_000_000).Seconds(); got != 1.5 {
		t.Fatalf("expected 1.5s, got %v", got)
	}
}
