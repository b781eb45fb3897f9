package protocol

import (
	"fmt"
	"math"

	"github.com/mcoot/battlerelay/internal/model"
)

// DecodeObject decodes an envelope's data as a generic object. A missing
// payload or anything other than an object is malformed.
func DecodeObject(codec Codec, env Envelope) (map[string]any, error) {
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%s: missing payload: %w", env.Event, model.ErrMalformedPayload)
	}
	var obj map[string]any
	if err := codec.Unmarshal(env.Data, &obj); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", env.Event, model.ErrMalformedPayload, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%s: payload is not an object: %w", env.Event, model.ErrMalformedPayload)
	}
	return obj, nil
}

// DecodeJoin reads a joinGame payload field by field. A field with the
// wrong type is left at its zero value so the store applies its default;
// only a payload that is not an object fails.
func DecodeJoin(codec Codec, env Envelope) (JoinGame, error) {
	if len(env.Data) == 0 {
		return JoinGame{}, nil
	}
	obj, err := DecodeObject(codec, env)
	if err != nil {
		return JoinGame{}, err
	}

	join := JoinGame{
		Name:   stringField(obj, "name"),
		Team:   stringField(obj, "team"),
		Weapon: stringField(obj, "weapon"),
	}
	if hp, ok := numberField(obj, "hp"); ok {
		join.HP = hp
	}
	return join, nil
}

// CoordinateFromObject extracts the known coordinate fields from a reported
// position. Missing or mistyped fields are left empty.
func CoordinateFromObject(obj map[string]any) model.Coordinate {
	var c model.Coordinate
	c.Latitude, _ = numberField(obj, "lat")
	c.Longitude, _ = numberField(obj, "lon")
	c.Altitude = optionalNumber(obj, "alt")
	c.Accuracy = optionalNumber(obj, "accuracy")
	c.Heading = optionalNumber(obj, "heading")
	c.X = optionalNumber(obj, "x")
	c.Y = optionalNumber(obj, "y")
	c.Z = optionalNumber(obj, "z")
	if ts, ok := numberField(obj, "timestamp"); ok && ts >= math.MinInt64 && ts < math.MaxInt64 {
		c.Timestamp = int64(ts)
	}
	return c
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

func optionalNumber(obj map[string]any, key string) *float64 {
	n, ok := numberField(obj, key)
	if !ok {
		return nil
	}
	return &n
}

// numberField accepts every numeric type either codec produces. NaN and
// infinities count as missing.
func numberField(obj map[string]any, key string) (float64, bool) {
	var n float64
	switch v := obj[key].(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int8:
		n = float64(v)
	case int16:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint8:
		n = float64(v)
	case uint16:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
