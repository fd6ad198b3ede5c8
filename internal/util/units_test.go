package util_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-txpipeline/internal/util"
)

func TestFormatUnits(t *testing.T) {
	oneAndHalf, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)

	assert.Equal(t, "1.5", util.FormatUnits(oneAndHalf, util.TokenDecimals))
	assert.Equal(t, "0.000000000000000001", util.FormatUnits(big.NewInt(1), util.TokenDecimals))
	assert.Equal(t, "12", util.FormatUnits(big.NewInt(12000000000), util.GweiDecimals))
	assert.Equal(t, "0", util.FormatUnits(nil, util.TokenDecimals))
}

func TestParseUnits(t *testing.T) {
	v, err := util.ParseUnits("1.5", util.TokenDecimals)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", v.String())

	v, err = util.ParseUnits("42", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	for _, bad := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := util.ParseUnits(bad, util.TokenDecimals)
		assert.Error(t, err, bad)
	}
}
