package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/orderdesk/pkg/errors"
	"github.com/angelmondragon/orderdesk/pkg/types"
)

type lineBody struct {
	Name     string       `json:"name" validate:"required"`
	Quantity types.Amount `json:"quantity" validate:"gte=0"`
	GSTRate  types.Amount `json:"gstRate" validate:"gte=0,lte=100"`
}

type quoteBody struct {
	Lines   []lineBody `json:"lines" validate:"required,min=1,dive"`
	Pincode string     `json:"pincode" validate:"omitempty,len=6,numeric"`
}

func request(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest quoteBody
	err := DecodeJSONBody(request(`{"lines":[{"name":"Basmati 1kg","quantity":"2","gstRate":5}],"pincode":"560001"}`), &dest)
	require.NoError(t, err)
	require.Len(t, dest.Lines, 1)
	assert.Equal(t, "2", dest.Lines[0].Quantity.Value.String())
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
		field   string
	}{
		{"empty", ``, "request body is empty", ""},
		{"malformed", `{"lines":`, "invalid request body", ""},
		{"unknown field", `{"lines":[{"name":"a"}],"coupon":"X"}`, "invalid request body", ""},
		{"trailing object", `{"lines":[{"name":"a"}]}{"lines":[]}`, "invalid request body", ""},
		{"missing lines", `{}`, "validation failed", "lines"},
		{"gst over 100", `{"lines":[{"name":"a","gstRate":"118"}]}`, "validation failed", "lines[0].gstRate"},
		{"short pincode", `{"lines":[{"name":"a"}],"pincode":"5600"}`, "validation failed", "pincode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dest quoteBody
			err := DecodeJSONBody(request(tt.body), &dest)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tt.message, typed.Message())
			if tt.field != "" {
				details, ok := typed.Details().(map[string]string)
				require.True(t, ok, "details %T", typed.Details())
				assert.Contains(t, details, tt.field)
			}
		})
	}
}

func TestDecodeJSONBodyLimitsSize(t *testing.T) {
	body := `{"lines":[{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}]}`
	var dest quoteBody
	err := DecodeJSONBody(request(body), &dest)
	require.Error(t, err)
	assert.Equal(t, "request body too large", pkgerrors.As(err).Message())
}

func TestValidationMessage(t *testing.T) {
	var dest quoteBody
	err := DecodeJSONBody(request(`{"lines":[{"name":"a","gstRate":"118"}]}`), &dest)
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "must be at most 100", details["lines[0].gstRate"])
}
