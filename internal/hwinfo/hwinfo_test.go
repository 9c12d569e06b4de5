package hwinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribePopulatesFields(t *testing.T) {
	info := Describe()
	require.NotEmpty(t, info.Architecture)
	require.NotEmpty(t, info.GoVersion)
	require.Greater(t, info.NumCPU, 0)
}

func TestHasAESHardwareSupportDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() {
		_ = HasAESHardwareSupport()
	})
}
