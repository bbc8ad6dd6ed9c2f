package model

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	a, err := ParseAction("swap")
	require.NoError(t, err)
	assert.Equal(t, ActionSwap, a)

	_, err = ParseAction("teleport")
	assert.Error(t, err)
}

func TestParseProtocol(t *testing.T) {
	p, err := ParseProtocol("minswap")
	require.NoError(t, err)
	assert.Equal(t, ProtocolMinswap, p)

	_, err = ParseProtocol("uniswap")
	assert.Error(t, err)
}

func TestParseTokenCategory(t *testing.T) {
	c, err := ParseTokenCategory("q_token")
	require.NoError(t, err)
	assert.Equal(t, CategoryQToken, c)

	_, err = ParseTokenCategory("bogus")
	assert.Error(t, err)
}

func TestParseJobStatus(t *testing.T) {
	s, err := ParseJobStatus("processing")
	require.NoError(t, err)
	assert.Equal(t, JobProcessing, s)

	_, err = ParseJobStatus("in_orbit")
	assert.Error(t, err)
}

func TestAssetFlowValidate(t *testing.T) {
	ok := AssetFlow{TokenUnit: "lovelace", InBase: big.NewInt(100), OutBase: big.NewInt(40), NetBase: big.NewInt(60)}
	assert.NoError(t, ok.Validate())

	badNet := AssetFlow{TokenUnit: "lovelace", InBase: big.NewInt(100), OutBase: big.NewInt(40), NetBase: big.NewInt(10)}
	assert.Error(t, badNet.Validate())

	negativeLeg := AssetFlow{TokenUnit: "lovelace", InBase: big.NewInt(-5), OutBase: big.NewInt(0), NetBase: big.NewInt(-5)}
	assert.Error(t, negativeLeg.Validate())
}
