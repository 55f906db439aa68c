package service_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/destined/internal/service"
)

func TestFlexID(t *testing.T) {
	var body struct {
		A service.FlexID `json:"a"`
		B service.FlexID `json:"b"`
		C service.FlexID `json:"c"`
		D service.FlexID `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12","b":34,"c":null,"d":true}`), &body))

	assert.Equal(t, "12", body.A.String())
	assert.Equal(t, "34", body.B.String())
	assert.Equal(t, "", body.C.String())

	_, err := service.ParseUserID(body.D.String())
	assert.Error(t, err)
}
