package httpclient

import "net/url"

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	query       url.Values
	headers     map[string]string
	skipRefresh bool
}

func newRequestOptions(opts []RequestOption) requestOptions {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}
	return ro
}

func WithQuery(q url.Values) RequestOption {
	return func(ro *requestOptions) {
		if ro.query == nil {
			ro.query = url.Values{}
		}
		for k, vs := range q {
			for _, v := range vs {
				if v != "" {
					ro.query.Add(k, v)
				}
			}
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(ro *requestOptions) {
		if ro.headers == nil {
			ro.headers = make(map[string]string)
		}
		ro.headers[key] = value
	}
}

// SkipRefresh turns off refresh for the request: a 401 is returned to the caller as is.
// Used by login, register and logout.
func SkipRefresh() RequestOption {
	return func(ro *requestOptions) { ro.skipRefresh = true }
}
