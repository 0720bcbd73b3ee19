package apierror

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func response(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusBadRequest,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		defaultMessage string
		want           string
	}{
		{name: "detail", body: `{"detail":"X"}`, defaultMessage: "D", want: "X"},
		{name: "nested", body: `{"error":{"message":"Y"}}`, defaultMessage: "D", want: "Y"},
		{name: "unknown shape", body: `{"foo":"bar"}`, defaultMessage: "D", want: "D"},
		{name: "not json", body: `<html>502 Bad Gateway</html>`, defaultMessage: "D", want: FallbackMessage},
		{name: "empty body", body: ``, defaultMessage: "D", want: FallbackMessage},
		{name: "detail beats nested", body: `{"detail":"X","error":{"message":"Y"}}`, defaultMessage: "D", want: "X"},
		{name: "empty detail falls through", body: `{"detail":"","error":{"message":"Y"}}`, defaultMessage: "D", want: "Y"},
		{name: "empty nested message", body: `{"error":{"message":""}}`, defaultMessage: "D", want: "D"},
		{name: "error as string", body: `{"error":"Failed to fetch job"}`, defaultMessage: "D", want: "D"},
		{name: "json null", body: `null`, defaultMessage: "D", want: "D"},
		{name: "json array", body: `[1,2]`, defaultMessage: "D", want: "D"},
		{
			name:           "validation list",
			body:           `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"msg":"field required"}]}`,
			defaultMessage: "D",
			want:           "value is not a valid email address; field required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromResponse(response(tt.body), tt.defaultMessage))
		})
	}
}

func TestParse_Kind(t *testing.T) {
	assert.Equal(t, KindDetail, Parse([]byte(`{"detail":"X"}`)).Kind)
	assert.Equal(t, KindNested, Parse([]byte(`{"error":{"message":"Y"}}`)).Kind)
	assert.Equal(t, KindUnknown, Parse([]byte(`{}`)).Kind)
	assert.Equal(t, KindUnparseable, Parse([]byte(`{`)).Kind)
	assert.Equal(t, "nested", KindNested.String())
}

func TestFromResponse_ReadError(t *testing.T) {
	resp := &http.Response{StatusCode: 500, Body: io.NopCloser(errReader{})}
	assert.Equal(t, FallbackMessage, FromResponse(resp, "D"))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
