package service

import "net/http"

// HTTPDoer is the transport used for webhook deliveries. *http.Client
// satisfies it; tests and deployments may substitute their own.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
