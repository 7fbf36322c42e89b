package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertErr(t *testing.T) {
	known := NewErrNo(RunNotExists)
	converted := ConvertErr(known)
	assert.Equal(t, RunNotExists, converted.ErrCode)
	assert.Equal(t, "run not exists", converted.ErrMsg)

	wrapped := fmt.Errorf("lookup: %w", NewErrNo(TokenInvalid))
	assert.Equal(t, TokenInvalid, ConvertErr(wrapped).ErrCode)

	plain := errors.New("boom")
	converted = ConvertErr(plain)
	assert.Equal(t, ServiceErr, converted.ErrCode)
	assert.Equal(t, "boom", converted.ErrMsg)
}

func TestGetAuthorizationToken(t *testing.T) {
	token, err := GetAuthorizationToken("Bearer abc.def.ghi")
	assert.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = GetAuthorizationToken("abc.def.ghi")
	assert.Error(t, err)

	_, err = GetAuthorizationToken("")
	assert.Error(t, err)
}
