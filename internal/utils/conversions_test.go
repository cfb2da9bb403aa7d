package utils_test

import (
	"testing"

	"github.com/jrsteele09/mcp-auth-gateway/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestToStringSlice(t *testing.T) {
	require.Equal(t, []string{"admins", "dev"}, utils.ToStringSlice([]any{"admins", 3, " ", " dev ", nil}))
	require.Empty(t, utils.ToStringSlice([]any{}))
	require.Nil(t, utils.ToStringSlice("admins"))
	require.Nil(t, utils.ToStringSlice(nil))
}

func TestPtr(t *testing.T) {
	p := utils.Ptr(true)
	require.NotNil(t, p)
	require.True(t, *p)
}
