package models

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Timestamp is a point in time that decodes from either a native date
// (BSON datetime, RFC 3339 string) or a timestamp object shaped like
// {seconds, nanoseconds}.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, normalized to UTC.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

// ToTime converts the timestamp to a time.Time. A nil receiver yields the
// zero time.
func (ts *Timestamp) ToTime() time.Time {
	if ts == nil {
		return time.Time{}
	}
	return ts.Time
}

// ISOString renders the timestamp the way browsers render Date.toISOString.
func (ts *Timestamp) ISOString() string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(ISOLayout)
}

// ISOLayout is RFC 3339 in UTC with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

type timestampObject struct {
	Seconds     *int64 `json:"seconds" bson:"seconds"`
	Nanoseconds int64  `json:"nanoseconds" bson:"nanoseconds"`
	AltSeconds  *int64 `json:"_seconds" bson:"_seconds"`
	AltNanos    int64  `json:"_nanoseconds" bson:"_nanoseconds"`
}

func (o timestampObject) toTime() (time.Time, bool) {
	switch {
	case o.Seconds != nil:
		return time.Unix(*o.Seconds, o.Nanoseconds).UTC(), true
	case o.AltSeconds != nil:
		return time.Unix(*o.AltSeconds, o.AltNanos).UTC(), true
	}
	return time.Time{}, false
}

// ParseTime parses the string forms accepted for dates.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// MarshalJSON encodes the timestamp as an ISO-8601 string.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(ts.UTC().Format(ISOLayout))
}

// UnmarshalJSON accepts a date string, epoch milliseconds or a
// {seconds, nanoseconds} object. Unrecognized shapes decode to the zero time.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	ts.Time = time.Time{}
	switch {
	case string(data) == "null" || len(data) == 0:
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		ts.Time, _ = ParseTime(s)
	case data[0] == '{':
		var obj timestampObject
		if err := json.Unmarshal(data, &obj); err == nil {
			ts.Time, _ = obj.toTime()
		}
	default:
		var ms float64
		if err := json.Unmarshal(data, &ms); err == nil {
			ts.Time = fromMillis(ms)
		}
	}
	return nil
}

// MarshalBSONValue stores the timestamp as a BSON datetime.
func (ts Timestamp) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(ts.UTC())
}

// UnmarshalBSONValue accepts datetimes, strings, BSON timestamps, numeric
// epoch milliseconds and {seconds, nanoseconds} documents. Anything else, or
// a value of an accepted type that cannot be read as a date, decodes to the
// zero time.
func (ts *Timestamp) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	ts.Time = time.Time{}
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.DateTime:
		ts.Time = rv.Time().UTC()
	case bsontype.String:
		ts.Time, _ = ParseTime(rv.StringValue())
	case bsontype.Timestamp:
		sec, _ := rv.Timestamp()
		ts.Time = time.Unix(int64(sec), 0).UTC()
	case bsontype.Int32:
		ts.Time = fromMillis(float64(rv.Int32()))
	case bsontype.Int64:
		ts.Time = fromMillis(float64(rv.Int64()))
	case bsontype.Double:
		ts.Time = fromMillis(rv.Double())
	case bsontype.EmbeddedDocument:
		var obj timestampObject
		if err := bson.Unmarshal(rv.Document(), &obj); err == nil {
			ts.Time, _ = obj.toTime()
		}
	}
	return nil
}

// fromMillis converts epoch milliseconds, ignoring values outside the range a
// date can represent.
func fromMillis(ms float64) time.Time {
	if math.IsNaN(ms) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// maxEpochMillis is the largest magnitude a JavaScript Date accepts.
const maxEpochMillis = 8.64e15
