package index

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"
)

// Kind is the type of field value a key encodes.
type Kind uint8

const (
	// KindInt64 keys hold the value itself.
	KindInt64 Kind = iota + 1
	// KindFloat64 keys hold the IEEE 754 bits reordered to sort numerically.
	KindFloat64
	// KindString keys hold the first 8 bytes of the string.
	KindString
	// KindBool keys hold 0 or 1.
	KindBool
	// KindTime keys hold nanoseconds since the Unix epoch.
	KindTime
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// ParseKind parses the names returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindInt64; k <= KindTime; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, ErrUnknownKind
}

const signBit = uint64(1) << 63

// canonicalNaN is the bit pattern every NaN is stored as. It sorts above
// +Inf.
const canonicalNaN = uint64(0x7FF8000000000000)

// Key is an order-preserving 64-bit surrogate of a field value: for two
// values a < b of one kind, the surrogate of a is less than or equal to the
// surrogate of b.
type Key struct {
	kind Kind
	s    int64
}

// Int64Key returns the key of an integer value.
func Int64Key(v int64) Key {
	return Key{kind: KindInt64, s: v}
}

// Float64Key returns the key of a floating point value. Negative values are
// bit-inverted and positive values keep their bits, which orders them
// numerically with -0 just below +0. Every NaN maps to one canonical NaN
// that sorts above +Inf.
func Float64Key(f float64) Key {
	bits := math.Float64bits(f)
	if math.IsNaN(f) {
		bits = canonicalNaN
	}
	if bits&signBit != 0 {
		return Key{kind: KindFloat64, s: int64(^bits ^ signBit)}
	}
	return Key{kind: KindFloat64, s: int64(bits)}
}

// StringKey returns the key of a string: its first 8 bytes read big-endian
// with the sign bit flipped. Strings sharing their first 8 bytes share a key,
// so lookups must check the stored value. Decoding is exact for strings of
// at most 8 bytes that do not end in NUL bytes.
func StringKey(s string) Key {
	var buf [8]byte
	copy(buf[:], s)
	u := binary.BigEndian.Uint64(buf[:])
	return Key{kind: KindString, s: int64(u ^ signBit)}
}

// BoolKey returns the key of a boolean: false sorts before true.
func BoolKey(b bool) Key {
	if b {
		return Key{kind: KindBool, s: 1}
	}
	return Key{kind: KindBool, s: 0}
}

// TimeKey returns the key of a point in time. Times outside the range of
// UnixNano (years 1678 to 2262) do not encode faithfully.
func TimeKey(t time.Time) Key {
	return Key{kind: KindTime, s: t.UnixNano()}
}

// KeyFromSurrogate rebuilds a key from a stored surrogate.
func KeyFromSurrogate(kind Kind, s int64) Key {
	return Key{kind: kind, s: s}
}

// Kind returns the kind of value the key encodes.
func (k Key) Kind() Kind {
	return k.kind
}

// Surrogate returns the 64-bit value stored in the index.
func (k Key) Surrogate() int64 {
	return k.s
}

// Int64 decodes an integer key.
func (k Key) Int64() int64 {
	return k.s
}

// Float64 decodes a floating point key.
func (k Key) Float64() float64 {
	u := uint64(k.s)
	if k.s < 0 {
		return math.Float64frombits(^(u ^ signBit))
	}
	return math.Float64frombits(u)
}

// Bool decodes a boolean key.
func (k Key) Bool() bool {
	return k.s != 0
}

// Time decodes a time key in UTC.
func (k Key) Time() time.Time {
	return time.Unix(0, k.s).UTC()
}

// String decodes a string key, dropping trailing NUL padding. Keys of other
// kinds are formatted as their decoded value.
func (k Key) String() string {
	switch k.kind {
	case KindString:
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(k.s)^signBit)
		n := len(buf)
		for n > 0 && buf[n-1] == 0 {
			n--
		}
		return string(buf[:n])
	case KindFloat64:
		return strconv.FormatFloat(k.Float64(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(k.Bool())
	case KindTime:
		return k.Time().Format(time.RFC3339Nano)
	default:
		return strconv.FormatInt(k.s, 10)
	}
}
