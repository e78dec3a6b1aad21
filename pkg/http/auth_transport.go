package http

import "net/http"

// authTransport injects a bearer token into outbound requests. A request
// that already carries an Authorization header keeps it.
type authTransport struct {
	token     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" || req.Header.Get("Authorization") != "" {
		return t.transport.RoundTrip(req)
	}

	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set("Authorization", "Bearer "+t.token)
	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken authenticates every request of the client with the given
// bearer token. An empty token leaves requests untouched.
func WithAuthToken(token string) ClientOpt {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			token:     token,
			transport: rt,
		}
	})
}
