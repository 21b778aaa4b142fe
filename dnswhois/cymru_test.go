package dnswhois

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCymruLine_WellFormed(t *testing.T) {
	line := "15169   | 8.8.8.8          | 8.8.8.0/24          | US | arin     | 1992-12-01 | GOOGLE, US"
	asn, owner, err := parseCymruLine(line)
	require.NoError(t, err)
	assert.Equal(t, 15169, asn)
	assert.Equal(t, "GOOGLE, US", owner)
}

func TestParseCymruLine_TooFewFields(t *testing.T) {
	_, _, err := parseCymruLine("15169 | 8.8.8.0/24")
	assert.Error(t, err)
}

func TestParseCymruLine_NonNumericASN(t *testing.T) {
	_, _, err := parseCymruLine("NA | 8.8.8.8 | 8.8.8.0/24 | US | arin | 1992-12-01 | GOOGLE, US")
	assert.Error(t, err)
}
