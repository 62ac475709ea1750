package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysrepo-go/core/value"
)

func TestEqualComparesPathTypeAndPayload(t *testing.T) {
	a := value.NewString("/x:leaf", "hi")
	b := value.NewString("/x:leaf", "hi")
	c := value.NewString("/x:leaf", "bye")
	d := value.NewInt64("/x:leaf", 1)

	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
	assert.False(t, value.Equal(a, d))
}

func TestEqualComparesBinaryByContent(t *testing.T) {
	a := value.NewBinary("/x:blob", []byte{1, 2, 3})
	b := value.NewBinary("/x:blob", []byte{1, 2, 3})
	c := value.NewBinary("/x:blob", []byte{1, 2, 4})

	assert.True(t, value.Equal(a, b))
	assert.False(t, value.Equal(a, c))
}

func TestEqualIgnoresDefaultFlag(t *testing.T) {
	a := value.NewString("/x:leaf", "hi")
	b := value.NewString("/x:leaf", "hi")
	b.IsDefault = true

	assert.True(t, value.Equal(a, b))
}

func TestEqualHandlesNil(t *testing.T) {
	a := value.NewString("/x:leaf", "hi")
	assert.True(t, value.Equal(nil, nil))
	assert.False(t, value.Equal(a, nil))
	assert.False(t, value.Equal(nil, a))
}

func TestCloneDeepCopiesBinaryPayload(t *testing.T) {
	orig := value.NewBinary("/x:blob", []byte{1, 2, 3})
	clone := orig.Clone()

	origBytes := orig.Data().([]byte)
	origBytes[0] = 0xff

	cloneBytes := clone.Data().([]byte)
	assert.Equal(t, byte(1), cloneBytes[0])
}

func TestTypeStringRoundTrips(t *testing.T) {
	assert.Equal(t, "int64", value.Int64.String())
	assert.Equal(t, "unknown", value.Type(999).String())
}
