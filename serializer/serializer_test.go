package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string
	Age  int
	Tags []string
}

func TestDefaultRegistrations(t *testing.T) {
	names := List()
	assert.Contains(t, names, "json")
	assert.Contains(t, names, "msgpack")
	assert.Contains(t, names, "pickle")
}

func TestGet_UnknownSerializer(t *testing.T) {
	_, err := Get("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown serializer")
}

func TestJSONSerializer_RoundTrip(t *testing.T) {
	s, err := Get("json")
	require.NoError(t, err)

	in := sample{Name: "ada", Age: 36, Tags: []string{"math", "computing"}}
	data, err := s.Serialize(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, in, out)
}

func TestMsgpackSerializer_RoundTrip(t *testing.T) {
	s, err := Get("msgpack")
	require.NoError(t, err)

	in := sample{Name: "grace", Age: 85, Tags: []string{"compilers"}}
	data, err := s.Serialize(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, s.Deserialize(data, &out))
	assert.Equal(t, in, out)
}

func TestPickleAlias_SameBehaviorAsMsgpack(t *testing.T) {
	msgpackSer, err := Get("msgpack")
	require.NoError(t, err)
	pickleSer, err := Get("pickle")
	require.NoError(t, err)

	in := sample{Name: "linus", Age: 56}
	data, err := pickleSer.Serialize(in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, msgpackSer.Deserialize(data, &out))
	assert.Equal(t, in, out)
}

func TestJSONSerializer_InvalidDataErrors(t *testing.T) {
	s, err := Get("json")
	require.NoError(t, err)

	var out sample
	err = s.Deserialize([]byte("not json"), &out)
	assert.Error(t, err)
}

func TestRegister_CustomSerializerOverridesLookup(t *testing.T) {
	Register("test-custom", &JSONSerializer{})
	s, err := Get("test-custom")
	require.NoError(t, err)
	assert.Equal(t, "json", s.GetType())
}
