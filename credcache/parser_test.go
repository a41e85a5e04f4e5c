package credcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessKeyParser(t *testing.T) {
	testValue1 := "AWS4-HMAC-SHA256 Credential=BXXXX0XXXXNTXXXXXXX/20220816/default/s3/aws4_request"
	testValue2 := "AWS BXXXX0XXXXNTXXXXXXX:1pzMXThw6lbcI7L1FazG//LCKz4="

	parser := NewAccessKeyParser()

	output, err := parser.FindAccessKey(testValue1)
	assert.NoError(t, err)
	assert.Equal(t, "BXXXX0XXXXNTXXXXXXX", output)

	output, err = parser.FindAccessKey(testValue2)
	assert.NoError(t, err)
	assert.Equal(t, "BXXXX0XXXXNTXXXXXXX", output)
}

func TestAccessKeyParserNoMatch(t *testing.T) {
	parser := NewAccessKeyParser()

	_, err := parser.FindAccessKey("Bearer abc123")
	assert.Equal(t, ErrNoAccessKey, err)

	_, err = parser.FindAccessKey("")
	assert.Equal(t, ErrNoAccessKey, err)
}
