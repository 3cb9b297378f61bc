package typedconf

import (
	"encoding/json"
	"errors"
	"net"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBool(t *testing.T) {
	tests := []struct {
		input   any
		want    bool
		wantErr bool
	}{
		{true, true, false},
		{"yes", true, false},
		{"YES", true, false},
		{"Y", true, false},
		{"On", true, false},
		{"t", true, false},
		{"1", true, false},
		{"OFF", false, false},
		{"no", false, false},
		{"f", false, false},
		{1, true, false},
		{0, false, false},
		{uint8(1), true, false},
		{json.Number("0"), false, false},
		{2, false, true},
		{"maybe", false, true},
		{" yes", false, true},
		{"off ", false, true},
		{1.0, false, true},
		{nil, false, true},
	}

	for _, tt := range tests {
		got, err := ToBool(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %#v", tt.input)
			continue
		}
		require.NoError(t, err, "input %#v", tt.input)
		assert.Equal(t, tt.want, got, "input %#v", tt.input)
	}
}

func TestToTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2020-01-02", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2020-01-02T03:04", time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)},
		{"2020-01-02 03:04:05", time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2020-01-02T03:04:05.5", time.Date(2020, 1, 2, 3, 4, 5, 500000000, time.UTC)},
		{"2020-01-02T03:04:05Z", time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2020-01-02T03:04:05+02:00", time.Date(2020, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"2020-01-02T03:04:05-0100", time.Date(2020, 1, 2, 4, 4, 5, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := ToTime(tt.input)
		require.NoError(t, err, tt.input)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.input, got)
	}

	_, err := ToTime("yesterday")
	assert.EqualError(t, err, `invalid isoformat string: "yesterday"`)

	_, err = ToTime(42)
	assert.Error(t, err)
}

func TestToDuration(t *testing.T) {
	d, err := ToDuration("1h30m")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, d)

	_, err = ToDuration(5)
	assert.Error(t, err)
}

type port int

func TestConverter_Numbers(t *testing.T) {
	c := DefaultConverter()

	tests := []struct {
		name    string
		input   any
		target  reflect.Type
		want    any
		wantErr string
	}{
		{"int from string", "42", reflect.TypeOf(0), 42, ""},
		{"int from integral float", 42.0, reflect.TypeOf(0), 42, ""},
		{"int from json number", json.Number("7"), reflect.TypeOf(int64(0)), int64(7), ""},
		{"named int", "80", reflect.TypeOf(port(0)), port(80), ""},
		{"int from fraction", 42.5, reflect.TypeOf(0), nil, "non-integral"},
		{"int from bool", true, reflect.TypeOf(0), nil, "cannot convert bool"},
		{"int8 overflow", "300", reflect.TypeOf(int8(0)), nil, "overflows"},
		{"uint from string", "7", reflect.TypeOf(uint(0)), uint(7), ""},
		{"uint from negative", -1, reflect.TypeOf(uint(0)), nil, "negative"},
		{"float from string", "1.5", reflect.TypeOf(0.0), 1.5, ""},
		{"float from int", 2, reflect.TypeOf(float32(0)), float32(2), ""},
		{"float from bool", false, reflect.TypeOf(0.0), nil, "cannot convert bool"},
		{"string from int", 42, reflect.TypeOf(""), "42", ""},
		{"string from list", []any{"a"}, reflect.TypeOf(""), nil, "expected a string"},
		{"bool from string", "yes", reflect.TypeOf(false), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Structure(tt.input, tt.target)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				var convErr *ConversionError
				require.True(t, errors.As(err, &convErr))
				assert.Equal(t, tt.target, convErr.Target)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConverter_SpecialScalars(t *testing.T) {
	c := DefaultConverter()

	u, err := StructureAs[url.URL](c, "https://example.com:8443/x")
	require.NoError(t, err)
	assert.Equal(t, "example.com:8443", u.Host)

	ip, err := StructureAs[net.IP](c, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ip.Equal(net.ParseIP("10.0.0.1")))

	_, err = StructureAs[net.IP](c, "not-an-ip")
	assert.Error(t, err)

	id, err := StructureAs[uuid.UUID](c, "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), id)

	b, err := StructureAs[[]byte](c, "raw")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), b)

	p, err := StructureAs[Path](c, "rel/dir")
	require.NoError(t, err)
	assert.Equal(t, Path("rel/dir"), p)

	addr, err := StructureAs[netip.Addr](c, "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.168.1.1"), addr)

	d, err := StructureAs[time.Duration](c, "2s")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestConverter_ResolvedPath(t *testing.T) {
	c := DefaultConverter()

	out, err := c.structure("data", resolvedPathType, convState{baseDir: "/etc/app"})
	require.NoError(t, err)
	assert.Equal(t, ResolvedPath(filepath.Join("/etc/app", "data")), out.Interface())

	out, err = c.structure("/var/lib/../data", resolvedPathType, convState{baseDir: "/etc/app"})
	require.NoError(t, err)
	assert.Equal(t, ResolvedPath("/var/data"), out.Interface())

	cwd, err := os.Getwd()
	require.NoError(t, err)
	rp, err := StructureAs[ResolvedPath](c, "data")
	require.NoError(t, err)
	assert.Equal(t, ResolvedPath(filepath.Join(cwd, "data")), rp)
}

func TestConverter_Wrappers(t *testing.T) {
	c := DefaultConverter()

	opt, err := StructureAs[Optional[int]](c, "5")
	require.NoError(t, err)
	assert.Equal(t, Some(5), opt)

	opt, err = StructureAs[Optional[int]](c, nil)
	require.NoError(t, err)
	assert.Equal(t, Optional[int]{}, opt)

	ptr, err := StructureAs[*int](c, "5")
	require.NoError(t, err)
	require.NotNil(t, ptr)
	assert.Equal(t, 5, *ptr)

	ptr, err = StructureAs[*int](c, nil)
	require.NoError(t, err)
	assert.Nil(t, ptr)

	anyVal, err := StructureAs[any](c, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, anyVal)
}

func TestConverter_Union(t *testing.T) {
	c := DefaultConverter()

	u, err := StructureAs[OneOf[int, bool]](c, "5")
	require.NoError(t, err)
	assert.Equal(t, 5, u.Value())

	u, err = StructureAs[OneOf[int, bool]](c, "yes")
	require.NoError(t, err)
	assert.Equal(t, true, u.Value())

	u, err = StructureAs[OneOf[int, bool]](c, true)
	require.NoError(t, err)
	assert.Equal(t, true, u.Value())

	u3, err := StructureAs[OneOf3[int, bool, string]](c, "text")
	require.NoError(t, err)
	assert.Equal(t, "text", u3.Value())

	_, err = StructureAs[OneOf[int, bool]](c, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no union member matched")
}

func TestConverter_Secrets(t *testing.T) {
	c := DefaultConverter()

	s, err := StructureAs[Secret[int]](c, "5")
	require.NoError(t, err)
	assert.Equal(t, 5, s.Get())
	assert.Equal(t, SecretRepr, s.String())
	assert.Equal(t, `Secret("*******")`, s.GoString())

	empty, err := StructureAs[Secret[[]string]](c, []any{})
	require.NoError(t, err)
	assert.Equal(t, "[]", empty.String())

	str, err := StructureAs[SecretStr](c, "pw")
	require.NoError(t, err)
	assert.Equal(t, "pw", string(str))
	assert.Equal(t, SecretRepr, str.String())
	assert.Equal(t, "", SecretStr("").String())
}

func TestConverter_Collections(t *testing.T) {
	c := DefaultConverter()

	ints, err := StructureAs[[]int](c, "1:2:3")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ints)

	ints, err = StructureAs[[]int](c, []any{"1", 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ints)

	_, err = StructureAs[[]int](c, []any{"1", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 1")

	pair, err := StructureAs[[2]int](c, "1:2")
	require.NoError(t, err)
	assert.Equal(t, [2]int{1, 2}, pair)

	_, err = StructureAs[[2]int](c, "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value must have 2 elements but has 1")

	set, err := StructureAs[map[string]struct{}](c, "a:b:a")
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}}, set)

	m, err := StructureAs[map[string]int](c, map[string]any{"a": "1", "b": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)

	_, err = StructureAs[map[string]int](c, "a=1")
	assert.Error(t, err)
}

func TestConverter_StrListHook(t *testing.T) {
	_, err := NewConverter(WithStrListSeparator(","), WithStrListFunc(func(string) ([]any, error) { return nil, nil }))
	assert.True(t, errors.Is(err, ErrInvalidStrListHook))

	c, err := NewConverter()
	require.NoError(t, err)
	assert.True(t, errors.Is(c.RegisterStrListHook("", nil), ErrInvalidStrListHook))

	_, err = StructureAs[[]string](c, "a:b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no string-to-list hook registered")

	require.NoError(t, c.RegisterStrListHook(",", nil))
	list, err := StructureAs[[]string](c, "a,b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)

	jsonList, err := NewConverter(WithStrListFunc(func(s string) ([]any, error) {
		var items []any
		err := json.Unmarshal([]byte(s), &items)
		return items, err
	}))
	require.NoError(t, err)
	ints, err := StructureAs[[]int](jsonList, "[1, 2]")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ints)
}

type color int

func TestConverter_Enums(t *testing.T) {
	c := DefaultConverter()
	RegisterEnum(c, map[string]color{"red": 1, "green": 2})

	got, err := StructureAs[color](c, "green")
	require.NoError(t, err)
	assert.Equal(t, color(2), got)

	got, err = StructureAs[color](c, color(1))
	require.NoError(t, err)
	assert.Equal(t, color(1), got)

	_, err = StructureAs[color](c, "blue")
	assert.True(t, errors.Is(err, ErrUnknownEnumMember))

	member, err := ToEnum("red", map[string]color{"red": 1})
	require.NoError(t, err)
	assert.Equal(t, color(1), member)
}

type level string

func TestConverter_Hooks(t *testing.T) {
	c := DefaultConverter()
	c.RegisterHook(reflect.TypeOf(level("")), func(v any, _ reflect.Type) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("expected a string")
		}
		return strings.ToUpper(s), nil
	})

	got, err := StructureAs[level](c, "debug")
	require.NoError(t, err)
	assert.Equal(t, level("DEBUG"), got)

	levels, err := StructureAs[[]level](c, "info:warn")
	require.NoError(t, err)
	assert.Equal(t, []level{"INFO", "WARN"}, levels)

	_, err = StructureAs[level](c, 3)
	assert.Error(t, err)
}

func TestConverter_Settings(t *testing.T) {
	c := DefaultConverter()

	s, err := StructureAs[Settings](c, map[string]any{
		"url":  "https://example.com",
		"host": map[string]any{"name": "h"},
	})
	require.NoError(t, err)
	assert.Equal(t, Settings{URL: "https://example.com", Default: 3, Host: Host{Name: "h", Port: 8080}}, s)

	_, err = StructureAs[Settings](c, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url: missing required field")
	assert.Contains(t, err.Error(), "host: name: missing required field")

	f, err := StructureAs[factorySettings](c, map[string]any{"level": "debug"})
	require.NoError(t, err)
	assert.Equal(t, factorySettings{Tags: []string{"a"}, Level: "DEBUG"}, f)

	_, err = StructureAs[Settings](c, "not a dict")
	assert.Error(t, err)
}
