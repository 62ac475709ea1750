// Package value implements the typed leaf payload as a Go sum type,
// replacing the C tagged-union value representation the original
// client library exposes.
package value

import "fmt"

// Type tags the payload carried by a Value.
type Type int

const (
	Binary Type = iota
	Bits
	Bool
	Decimal64
	Enum
	IdentityRef
	InstanceID
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	String
	Empty
	Container
	ContainerPresence
	List
	LeafEmpty
	Union
	Unknown
)

func (t Type) String() string {
	names := map[Type]string{
		Binary: "binary", Bits: "bits", Bool: "bool", Decimal64: "decimal64",
		Enum: "enum", IdentityRef: "identityref", InstanceID: "instance-id",
		Int8: "int8", Int16: "int16", Int32: "int32", Int64: "int64",
		Uint8: "uint8", Uint16: "uint16", Uint32: "uint32", Uint64: "uint64",
		String: "string", Empty: "empty", Container: "container",
		ContainerPresence: "container-presence", List: "list",
		LeafEmpty: "leaf-empty", Union: "union", Unknown: "unknown",
	}
	if n, ok := names[t]; ok {
		return n
	}
	return "unknown"
}

// Value is a typed leaf payload: an absolute instance-identifier path, a
// type tag, a default-flag and the typed data itself. Ownership passes to
// whichever component last received it across a call boundary (data
// manager working copy, commit diff, notification payload); there is no
// shared mutable aliasing once a Value crosses that boundary, so callers
// that need to retain it beyond the call should Clone it.
type Value struct {
	Path      string
	Type      Type
	IsDefault bool

	data interface{}
}

// New constructs a Value of the given type carrying data. Callers should
// use the typed constructors below where the Go representation is
// unambiguous; New is for the generic union/unknown cases.
func New(path string, t Type, data interface{}) *Value {
	return &Value{Path: path, Type: t, data: data}
}

func NewString(path, s string) *Value   { return New(path, String, s) }
func NewBool(path string, b bool) *Value { return New(path, Bool, b) }
func NewInt64(path string, v int64) *Value { return New(path, Int64, v) }
func NewUint64(path string, v uint64) *Value { return New(path, Uint64, v) }
func NewEnum(path, s string) *Value     { return New(path, Enum, s) }
func NewBinary(path string, b []byte) *Value { return New(path, Binary, append([]byte(nil), b...)) }
func NewIdentityRef(path, s string) *Value { return New(path, IdentityRef, s) }
func NewInstanceID(path, s string) *Value  { return New(path, InstanceID, s) }
func NewEmpty(path string) *Value          { return New(path, Empty, nil) }
func NewDecimal64(path string, digits int64, fracDigits uint8) *Value {
	return New(path, Decimal64, decimal64{digits: digits, fracDigits: fracDigits})
}

type decimal64 struct {
	digits     int64
	fracDigits uint8
}

// Data returns the untyped payload. Callers type-assert against the
// representation documented for the matching Type constant.
func (v *Value) Data() interface{} { return v.data }

// String renders the value for logging/diagnostics; it is not the wire
// encoding.
func (v *Value) String() string {
	return fmt.Sprintf("%s=%v", v.Path, v.data)
}

// Clone returns a deep-enough copy safe to retain past the call boundary
// that produced v (e.g. to snapshot into a CommitContext pre-tree).
func (v *Value) Clone() *Value {
	clone := *v
	if b, ok := v.data.([]byte); ok {
		clone.data = append([]byte(nil), b...)
	}
	return &clone
}

// Equal compares two values by path, type and payload, ignoring the
// default-flag: a round-trip set_item/get_item equals the original
// value modulo default-value materialization.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Path != b.Path || a.Type != b.Type {
		return false
	}
	ab, aIsBytes := a.data.([]byte)
	bb, bIsBytes := b.data.([]byte)
	if aIsBytes && bIsBytes {
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	}
	return a.data == b.data
}
