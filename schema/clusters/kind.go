package clusters

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the category of a cluster. Values are stored by number, so new
// kinds can be appended without touching stored records, and numbers this
// build does not know still round-trip.
type Kind int32

const (
	KindUnspecified Kind = 0
	KindKafka       Kind = 1
	KindRedpanda    Kind = 2
)

var kindNames = map[Kind]string{
	KindUnspecified: "KIND_UNSPECIFIED",
	KindKafka:       "KAFKA",
	KindRedpanda:    "REDPANDA",
}

var kindValues = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

// Kinds returns every kind this build knows, in numeric order.
func Kinds() []Kind {
	return []Kind{KindUnspecified, KindKafka, KindRedpanda}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// Known reports whether k is one of the declared kinds.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts a kind name (KAFKA) or its number (1).
func ParseKind(s string) (Kind, error) {
	if k, ok := kindValues[s]; ok {
		return k, nil
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown cluster kind %q", s)
	}
	return Kind(n), nil
}

// MarshalText renders the kind name, or the bare number for kinds this
// build does not know.
func (k Kind) MarshalText() ([]byte, error) {
	if name, ok := kindNames[k]; ok {
		return []byte(name), nil
	}
	return []byte(strconv.FormatInt(int64(k), 10)), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// UnmarshalJSON accepts both "KAFKA" and 1.
func (k *Kind) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return k.UnmarshalText([]byte(s))
	}
	var n int32
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cluster kind must be a name or a number: %w", err)
	}
	*k = Kind(n)
	return nil
}
