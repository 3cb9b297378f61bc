package typedconf

import (
	"encoding/json"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	var unset Optional[int]
	v, ok := unset.Get()
	assert.False(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 7, unset.OrDefault(7))

	set := Some(0)
	v, ok = set.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
	assert.Equal(t, 0, set.OrDefault(7))
}

func TestSecretStr_Formatting(t *testing.T) {
	s := SecretStr("hunter2")

	assert.Equal(t, SecretRepr, fmt.Sprint(s))
	assert.Equal(t, SecretRepr, fmt.Sprintf("%v", s))
	assert.Equal(t, `"*******"`, fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2", string(s))

	data, err := json.Marshal(map[string]any{"password": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password": "*******"}`, string(data))
}

func TestSecret_Formatting(t *testing.T) {
	s := NewSecret([]string{"token"})

	assert.Equal(t, []string{"token"}, s.Get())
	assert.Equal(t, SecretRepr, fmt.Sprint(s))
	assert.Equal(t, `Secret("*******")`, fmt.Sprintf("%#v", s))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"*******"`, string(data))

	assert.Equal(t, "0", NewSecret(0).String())
	assert.Equal(t, "", NewSecret("").String())
}

func TestIsSecretType(t *testing.T) {
	assert.True(t, isSecretType(reflect.TypeOf(SecretStr(""))))
	assert.True(t, isSecretType(reflect.TypeOf(Secret[int]{})))
	assert.False(t, isSecretType(reflect.TypeOf("")))
	assert.True(t, isSecretType(reflect.TypeOf(Optional[SecretStr]{})))
	assert.True(t, isSecretType(reflect.TypeOf((*SecretStr)(nil))))
	assert.False(t, isSecretType(reflect.TypeOf(Optional[string]{})))
}
