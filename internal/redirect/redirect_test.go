package redirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidRedirectURL(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{name: "empty", candidate: "", want: false},
		{name: "root", candidate: "/", want: true},
		{name: "job page", candidate: "/jobs/42", want: true},
		{name: "with query", candidate: "/jobs?page=2&q=go", want: true},
		{name: "with fragment", candidate: "/dashboard#applications", want: true},
		{name: "protocol relative", candidate: "//evil.test", want: false},
		{name: "protocol relative with path", candidate: "//evil.test/dashboard", want: false},
		{name: "triple slash", candidate: "///evil.test", want: false},
		{name: "http", candidate: "http://evil.test", want: false},
		{name: "https", candidate: "https://evil.test/dashboard", want: false},
		{name: "javascript", candidate: "javascript:alert(1)", want: false},
		{name: "mailto", candidate: "mailto:a@b.com", want: false},
		{name: "data", candidate: "data:text/html,hi", want: false},
		{name: "bare relative", candidate: "dashboard", want: false},
		{name: "leading space", candidate: " /dashboard", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidRedirectURL(tt.candidate))
		})
	}
}

func TestIsValidRedirectURL_Properties(t *testing.T) {
	t.Run("double slash prefix always rejected", func(t *testing.T) {
		for _, suffix := range []string{"", "a", "/", "evil.test", "x/y?z=1", "\\"} {
			assert.False(t, IsValidRedirectURL("//"+suffix), "//%s", suffix)
		}
	})

	t.Run("single slash followed by non-slash always accepted", func(t *testing.T) {
		for _, r := range []string{"a", "1", "?", "#", "-", "%", "~", "é"} {
			assert.True(t, IsValidRedirectURL("/"+r), "/%s", r)
			assert.True(t, IsValidRedirectURL("/"+r+"/more"), "/%s/more", r)
		}
	})

	t.Run("scheme prefix always rejected", func(t *testing.T) {
		for _, scheme := range []string{"http:", "https:", "javascript:", "mailto:", "ftp:", "file:", "vbscript:"} {
			assert.False(t, IsValidRedirectURL(scheme+"//evil.test"), scheme)
			assert.False(t, IsValidRedirectURL(scheme+"/x"), scheme)
		}
	})
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "/jobs/42", Resolve("/jobs/42"))
	assert.Equal(t, DefaultTarget, Resolve(""))
	assert.Equal(t, DefaultTarget, Resolve("http://evil.test"))
	assert.Equal(t, DefaultTarget, Resolve("//evil.test"))

	t.Run("characters browsers fold into a second slash", func(t *testing.T) {
		for _, candidate := range []string{"/\\evil.test", "/\tevil.test", "/\t/evil.test", "/\n/evil.test", "/\r/evil.test", "/jobs\\..\\evil", "/\x00/evil.test", "/\x7f/evil.test"} {
			assert.True(t, IsValidRedirectURL(candidate), "%q", candidate)
			assert.Equal(t, DefaultTarget, Resolve(candidate), "%q", candidate)
		}
	})
}
