package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                               "/",
		"/metrics":                       "/metrics",
		"/v1/properties":                 "/v1/properties",
		"/v1/properties/42":              "/v1/properties/:id",
		"/v1/properties/42/images":       "/v1/properties/:id/images",
		"/v1/properties/mine":            "/v1/properties/mine",
		"/v1/properties/published":       "/v1/properties/published",
		"/v1/properties/published?city=": "/v1/properties/published",
		"/v1/admin/agents/7":             "/v1/admin/agents/:id",
		"/v1/admin/agents":               "/v1/admin/agents",
		"/v1/auth/login":                 "/v1/auth/login",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
