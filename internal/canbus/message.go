package canbus

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a signal value: a number or a flag. The external packer scales
// and range-checks it against the signal catalog.
type Value struct {
	num    float64
	isBool bool
}

// Num wraps a numeric value.
func Num(v float64) Value { return Value{num: v} }

// Int wraps an integer value.
func Int(v int) Value { return Value{num: float64(v)} }

// Bool wraps a flag.
func Bool(b bool) Value {
	if b {
		return Value{num: 1, isBool: true}
	}
	return Value{isBool: true}
}

// Float returns the numeric form; flags map to 0 and 1.
func (v Value) Float() float64 { return v.num }

// IsBool reports whether the value was set as a flag.
func (v Value) IsBool() bool { return v.isBool }

// Truthy reports whether the value is non-zero.
func (v Value) Truthy() bool { return v.num != 0 }

func (v Value) String() string {
	if v.isBool {
		return strconv.FormatBool(v.num != 0)
	}
	return strconv.FormatFloat(v.num, 'g', -1, 64)
}

// MarshalJSON renders flags as JSON booleans and everything else as numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isBool {
		return json.Marshal(v.num != 0)
	}
	return json.Marshal(v.num)
}

// Field is one named signal assignment.
type Field struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Fields is an ordered signal-name to value mapping. Order follows first
// assignment, which keeps encoder output stable for logging and tests.
type Fields []Field

// Set assigns name, replacing an earlier value in place.
func (f *Fields) Set(name string, v Value) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = v
			return
		}
	}
	*f = append(*f, Field{Name: name, Value: v})
}

// Get looks up a field by name.
func (f Fields) Get(name string) (Value, bool) {
	for _, fl := range f {
		if fl.Name == name {
			return fl.Value, true
		}
	}
	return Value{}, false
}

// Names returns the field names in order.
func (f Fields) Names() []string {
	names := make([]string, len(f))
	for i, fl := range f {
		names[i] = fl.Name
	}
	return names
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	return append(Fields(nil), f...)
}

// Message is one outbound frame request. Catalog messages carry a Name and
// Fields; raw messages (not in the signal catalog) carry Address and Data.
type Message struct {
	Name   string `json:"name,omitempty"`
	Bus    int    `json:"bus"`
	Fields Fields `json:"fields,omitempty"`

	Address uint32 `json:"address,omitempty"`
	Data    []byte `json:"data,omitempty"`
}

// NewMessage builds a catalog message.
func NewMessage(name string, bus int, fields Fields) Message {
	return Message{Name: name, Bus: bus, Fields: fields}
}

// RawMessage builds a message that bypasses the signal catalog.
func RawMessage(address uint32, data []byte, bus int) Message {
	return Message{Address: address, Data: data, Bus: bus}
}

// IsRaw reports whether m bypasses the signal catalog.
func (m Message) IsRaw() bool {
	return m.Name == ""
}

// Value returns a field value, or zero when the field is absent.
func (m Message) Value(name string) Value {
	v, _ := m.Fields.Get(name)
	return v
}

func (m Message) String() string {
	if m.IsRaw() {
		return fmt.Sprintf("raw(0x%X bus=%d data=% X)", m.Address, m.Bus, m.Data)
	}
	return fmt.Sprintf("%s(bus=%d %d fields)", m.Name, m.Bus, len(m.Fields))
}

// Packer is the external signal codec that turns a catalog message into
// wire bytes.
type Packer interface {
	Pack(Message) (Frame, error)
}
