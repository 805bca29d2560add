package domain

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Nanos is an epoch timestamp in nanoseconds as reported by the producer.
type Nanos int64

// Seconds converts the timestamp to fractional epoch seconds.
func (n Nanos) Seconds() float64 { return float64(n) / 1e9 }

// Time returns the timestamp as a UTC time.Time.
func (n Nanos) Time() time.Time { return time.Unix(0, int64(n)).UTC() }

// UnmarshalJSON accepts integer and float literals. Anything else (null,
// strings, objects) decodes to zero, the same default a missing field gets.
func (n *Nanos) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Nanos(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		*n = Nanos(int64(f))
		return nil
	}
	*n = 0
	return nil
}

// Values holds the numeric fields reported by one sensor event.
type Values map[string]float64

// Get returns the named field, or 0 when the producer omitted it.
func (v Values) Get(field string) float64 {
	return v[field]
}

// UnmarshalJSON keeps numeric members only. Non-numeric members, and a
// non-object value, are treated as absent.
func (v *Values) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := jsonAPI.Unmarshal(b, &raw); err != nil {
		*v = nil
		return nil
	}
	out := make(Values, len(raw))
	for k, val := range raw {
		if f, ok := val.(float64); ok {
			out[k] = f
		}
	}
	*v = out
	return nil
}

// SensorEvent is one named, timestamped payload of field measurements.
type SensorEvent struct {
	Name     string   `json:"name"`
	Time     Nanos    `json:"time"`
	Values   Values   `json:"values"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

type eventWire struct {
	Name     jsoniter.RawMessage `json:"name"`
	Time     Nanos               `json:"time"`
	Values   Values              `json:"values"`
	Accuracy jsoniter.RawMessage `json:"accuracy"`
}

// UnmarshalJSON never fails on a syntactically valid element. A non-object
// element or a non-string name yields an event no sensor recognizes; an
// accuracy that is not a number is treated as absent.
func (e *SensorEvent) UnmarshalJSON(b []byte) error {
	var w eventWire
	if err := jsonAPI.Unmarshal(b, &w); err != nil {
		*e = SensorEvent{}
		return nil
	}
	*e = SensorEvent{
		Time:     w.Time,
		Values:   w.Values,
		Accuracy: looseFloat(w.Accuracy),
	}
	if name, ok := jsonString(w.Name); ok {
		e.Name = name
	}
	return nil
}

// Sensor resolves the event name against the recognized sensor set.
func (e SensorEvent) Sensor() Sensor {
	return ParseSensor(e.Name)
}

// Batch is the body of one ingest request. The envelope identifiers are
// optional and only used to label persisted readings.
type Batch struct {
	MessageID int64         `json:"messageId"`
	SessionID string        `json:"sessionId"`
	DeviceID  string        `json:"deviceId"`
	Payload   []SensorEvent `json:"payload"`
}

type batchWire struct {
	MessageID jsoniter.RawMessage `json:"messageId"`
	SessionID jsoniter.RawMessage `json:"sessionId"`
	DeviceID  jsoniter.RawMessage `json:"deviceId"`
	Payload   []SensorEvent       `json:"payload"`
}

// UnmarshalJSON only requires payload to be an array (or absent). Envelope
// identifiers of an unexpected type fall back to their zero value; numeric
// session and device ids keep their literal text.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var w batchWire
	if err := jsonAPI.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Batch{
		MessageID: looseInt(w.MessageID),
		SessionID: looseText(w.SessionID),
		DeviceID:  looseText(w.DeviceID),
		Payload:   w.Payload,
	}
	return nil
}

func jsonString(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := jsonAPI.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func jsonNumber(raw []byte) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if s, ok := jsonString(raw); ok {
		raw = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func looseText(raw []byte) string {
	if s, ok := jsonString(raw); ok {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if _, err := strconv.ParseFloat(string(trimmed), 64); err == nil {
		return string(trimmed)
	}
	return ""
}

// looseInt accepts integers, numeric strings and floats (truncated).
func looseInt(raw []byte) int64 {
	trimmed := bytes.TrimSpace(raw)
	if v, err := strconv.ParseInt(string(trimmed), 10, 64); err == nil {
		return v
	}
	if s, ok := jsonString(trimmed); ok {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v
		}
	}
	if f, ok := jsonNumber(trimmed); ok && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return 0
}

func looseFloat(raw []byte) *float64 {
	if f, ok := jsonNumber(raw); ok {
		return &f
	}
	return nil
}

// ParseError reports a request body that is not a JSON batch document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse batch: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNotObject = fmt.Errorf("body is not a JSON object")

// ParseBatch decodes a raw request body. A nil error guarantees a batch that
// is safe to dispatch; every failure is a *ParseError.
func ParseBatch(raw []byte) (Batch, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Batch{}, &ParseError{Err: errNotObject}
	}
	var b Batch
	if err := jsonAPI.Unmarshal(trimmed, &b); err != nil {
		return Batch{}, &ParseError{Err: err}
	}
	return b, nil
}

// Reading is one sensor event labelled with the envelope it arrived in. It is
// the unit spooled to the WAL and written to reading sinks.
type Reading struct {
	DeviceID  string   `json:"device_id"`
	SessionID string   `json:"session_id"`
	MessageID int64    `json:"message_id"`
	Sensor    string   `json:"sensor"`
	Time      Nanos    `json:"time"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Values    Values   `json:"values"`
}

// Readings flattens the batch into labelled readings, one per event.
func (b Batch) Readings() []*Reading {
	if len(b.Payload) == 0 {
		return nil
	}
	out := make([]*Reading, len(b.Payload))
	for i, ev := range b.Payload {
		out[i] = &Reading{
			DeviceID:  b.DeviceID,
			SessionID: b.SessionID,
			MessageID: b.MessageID,
			Sensor:    ev.Name,
			Time:      ev.Time,
			Accuracy:  ev.Accuracy,
			Values:    ev.Values,
		}
	}
	return out
}
