package dto

import (
	"encoding/json"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindAirtime(t *testing.T, body string) error {
	t.Helper()
	var req VendAirtimeRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return binding.Validator.ValidateStruct(&req)
}

func TestVendAirtimeValidation(t *testing.T) {
	valid := `{"product_code":"MTNVTU","phone_number":"08031234567","amount":100,"merchant_ref":"REF-001"}`
	assert.NoError(t, bindAirtime(t, valid))

	cases := map[string]string{
		"missing amount":      `{"product_code":"MTNVTU","phone_number":"08031234567","merchant_ref":"REF-001"}`,
		"bad merchant ref":    `{"product_code":"MTNVTU","phone_number":"08031234567","amount":100,"merchant_ref":"REF 001"}`,
		"bad phone":           `{"product_code":"MTNVTU","phone_number":"not-a-phone","amount":100,"merchant_ref":"REF-001"}`,
		"empty product":       `{"product_code":"","phone_number":"08031234567","amount":100,"merchant_ref":"REF-001"}`,
		"ref with underscore": `{"product_code":"MTNVTU","phone_number":"08031234567","amount":100,"merchant_ref":"REF_001"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, bindAirtime(t, body))
		})
	}
}

func TestMSISDNFormats(t *testing.T) {
	for _, ok := range []string{"08031234567", "2348031234567", "+2348031234567"} {
		var req VendDataRequest
		body := `{"product_code":"MTNDATA","data_code":"MTN-1GB","phone_number":"` + ok + `","merchant_ref":"REF-1"}`
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		assert.NoError(t, binding.Validator.ValidateStruct(&req), "phone %s", ok)
	}
}
