// Package tablefmt serializes a curated table as a two-level map: the outer
// key is the integer start value, the inner key the integer end value and
// the leaf the witness program.
//
//	{"65":{"0":"A","66":"QQPG"}}
package tablefmt

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/shortprog/errz"
	"github.com/deepnoodle-ai/shortprog/table"
	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Nested is the serialized shape of a table: start bucket to end bucket to
// program.
type Nested map[int]map[int]string

// Len returns the number of leaves.
func (n Nested) Len() int {
	count := 0
	for _, inner := range n {
		count += len(inner)
	}
	return count
}

// Lookup returns the program stored for start and end.
func (n Nested) Lookup(start, end int) (string, bool) {
	inner, ok := n[start]
	if !ok {
		return "", false
	}
	program, ok := inner[end]
	return program, ok
}

// Format names a serialization format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CBOR Format = "cbor"
	Text Format = "text"
)

// Formats returns the supported formats.
func Formats() []Format {
	return []Format{JSON, YAML, CBOR, Text}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", errz.New(errz.ErrUsage, "unknown output format: %s", s)
}

// Option configures grouping.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	strict bool
}

// WithLogger sets the logger that receives non-integer key warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStrict makes a non-integer start or end an error instead of a logged
// warning.
func WithStrict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// Group buckets entries by their truncated start and end values. Curated
// tables only hold integer values; anything else is logged and truncated,
// or rejected under WithStrict. NaN, infinities and values outside the
// int range are always rejected.
func Group(entries []table.Entry, opts ...Option) (Nested, error) {
	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	nested := Nested{}
	for _, e := range entries {
		start, err := o.bucket("start", e.Start, e.Program)
		if err != nil {
			return nil, err
		}
		end, err := o.bucket("end", e.End, e.Program)
		if err != nil {
			return nil, err
		}
		inner, ok := nested[start]
		if !ok {
			inner = map[int]string{}
			nested[start] = inner
		}
		inner[end] = e.Program
	}
	return nested, nil
}

func (o *options) bucket(name string, v float64, program string) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errz.New(errz.ErrEncoding, "non-finite %s %g (program %q)", name, v, program)
	}
	if v >= math.MaxInt64 || v < math.MinInt64 {
		return 0, errz.New(errz.ErrEncoding, "%s %g out of range (program %q)", name, v, program)
	}
	if v != math.Trunc(v) {
		if o.strict {
			return 0, errz.New(errz.ErrEncoding, "unexpected non-integer %s %g (program %q)", name, v, program)
		}
		o.logger.Warn().Float64(name, v).Str("program", program).
			Msgf("unexpected non-integer %s", name)
	}
	return int(v), nil
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("tablefmt: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes n in the given format.
func Marshal(f Format, n Nested) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case JSON:
		data, err = json.Marshal(n)
	case YAML:
		data, err = yaml.Marshal(n)
	case CBOR:
		data, err = cborEncMode.Marshal(n)
	case Text:
		data = marshalText(n)
	default:
		return nil, errz.New(errz.ErrUsage, "unknown output format: %s", f)
	}
	if err != nil {
		return nil, errz.Wrap(errz.ErrEncoding, err, "marshal %s", f)
	}
	return data, nil
}

// Unmarshal decodes data written by Marshal.
func Unmarshal(f Format, data []byte) (Nested, error) {
	n := Nested{}
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &n)
	case YAML:
		err = yaml.Unmarshal(data, &n)
	case CBOR:
		err = cbor.Unmarshal(data, &n)
	case Text:
		n, err = unmarshalText(data)
	default:
		return nil, errz.New(errz.ErrUsage, "unknown output format: %s", f)
	}
	if err != nil {
		return nil, errz.Wrap(errz.ErrEncoding, err, "unmarshal %s", f)
	}
	return n, nil
}

// Keys returns the sorted outer keys of n.
func (n Nested) Keys() []int {
	keys := make([]int, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func innerKeys(inner map[int]string) []int {
	keys := make([]int, 0, len(inner))
	for k := range inner {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func marshalText(n Nested) []byte {
	var buf bytes.Buffer
	for _, start := range n.Keys() {
		inner := n[start]
		for _, end := range innerKeys(inner) {
			fmt.Fprintf(&buf, "%d %d %s\n", start, end, inner[end])
		}
	}
	return buf.Bytes()
}

func unmarshalText(data []byte) (Nested, error) {
	n := Nested{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 3 {
			return nil, fmt.Errorf("line %d: expected 3 fields, got %d", line, len(fields))
		}
		start, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		end, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		inner, ok := n[start]
		if !ok {
			inner = map[int]string{}
			n[start] = inner
		}
		inner[end] = fields[2]
	}
	return n, scanner.Err()
}
