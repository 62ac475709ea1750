package mgmterror_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sysrepo-go/core/mgmterror"
)

func TestKindOfReturnsInternalForUnwrappedError(t *testing.T) {
	assert.Equal(t, mgmterror.Internal, mgmterror.KindOf(errors.New("boom")))
}

func TestKindOfReturnsCarriedKind(t *testing.T) {
	err := mgmterror.NewDataMissingError("/x:leaf")
	assert.Equal(t, mgmterror.DataMissing, mgmterror.KindOf(err))
}

func TestErrorStringIncludesPathWhenSet(t *testing.T) {
	err := mgmterror.NewDataExistsError("/x:leaf")
	assert.Contains(t, err.Error(), "/x:leaf")
	assert.Contains(t, err.Error(), "data-exists")
}

func TestWithPathReturnsCopyNotAliasingOriginal(t *testing.T) {
	base := mgmterror.NewInternalError("bad state")
	withPath := base.WithPath("/x:leaf")

	assert.Empty(t, base.Path)
	assert.Equal(t, "/x:leaf", withPath.Path)
}
