package solana

import (
	"context"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Caller issues one JSON-RPC request and decodes its result into out.
// This is the seam tests replace; production code uses NewRPCCaller.
type Caller interface {
	Call(ctx context.Context, method string, params []interface{}, out interface{}) error
}

// realCaller adapts the solana-go JSON-RPC client to Caller and classifies
// its failures into TransportError and MalformedResponseError.
type realCaller struct {
	client jsonrpc.RPCClient
}

// NewRPCCaller creates a Caller for the given endpoint.
// For premium RPC endpoints that require API keys, include the key in the URL:
// - Helius: https://mainnet.helius-rpc.com/?api-key=YOUR-KEY
// - QuickNode: https://YOUR-ENDPOINT.quiknode.pro/YOUR-KEY/
func NewRPCCaller(endpoint string) Caller {
	return &realCaller{
		client: jsonrpc.NewClientWithOpts(endpoint, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Transport: &observedTransport{next: http.DefaultTransport}},
		}),
	}
}

func (r *realCaller) Call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	obs := &httpObservation{}
	err := r.client.CallForInto(context.WithValue(ctx, observationKey{}, obs), out, method, params)
	if err == nil {
		return nil
	}

	// The jsonrpc client flattens transport failures into plain strings, so
	// classify from what the HTTP layer actually saw.
	if obs.err != nil {
		return &TransportError{Method: method, Err: obs.err}
	}
	if obs.status != 0 && (obs.status < 200 || obs.status >= 300) {
		return &TransportError{Method: method, StatusCode: obs.status, Err: err}
	}

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return &MalformedResponseError{Method: method, Code: rpcErr.Code, Message: rpcErr.Message, Err: err}
	}
	if obs.status == 0 {
		// No response ever reached the HTTP layer (request build failure or
		// the context was done before sending).
		return &TransportError{Method: method, Err: err}
	}
	return &MalformedResponseError{Method: method, Err: err}
}

type observationKey struct{}

// httpObservation records the outcome of the single HTTP exchange behind one call.
type httpObservation struct {
	status int
	err    error
}

// observedTransport reports each HTTP exchange into the observation carried
// by the request context.
type observedTransport struct {
	next http.RoundTripper
}

func (t *observedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if obs, ok := req.Context().Value(observationKey{}).(*httpObservation); ok {
		if err != nil {
			obs.err = err
		} else {
			obs.status = resp.StatusCode
		}
	}
	return resp, err
}
