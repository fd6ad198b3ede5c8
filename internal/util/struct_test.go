package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/util"
)

type component struct{}

type server struct {
	Name      string
	Component *component
	Handler   func()
	Optional  *component `ready:"optional"`
	internal  *component
}

func TestIsStructInitialized(t *testing.T) {
	s := &server{Component: &component{}, Handler: func() {}}
	require.NoError(t, util.IsStructInitialized(s))
	assert.Nil(t, s.internal)
	assert.Nil(t, s.Optional)

	s.Component = nil
	err := util.IsStructInitialized(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Component")

	require.Error(t, util.IsStructInitialized((*server)(nil)))
	require.Error(t, util.IsStructInitialized(42))
}
