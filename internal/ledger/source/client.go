package source

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client is the production Adapter implementation. It talks to the
// "watch transactions for address" gRPC streaming RPC described in spec
// §6 via a single dmtr-api-key header over HTTPS. The concrete gRPC
// streaming SDK is explicitly out of scope (spec §1); this type owns
// only the decode/classify contract around it, with the wire call
// delegated to dial.
type Client struct {
	networkName string
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	logger      *zap.Logger

	dial func(ctx context.Context, endpoint, apiKey string, addresses []string) (rawEventSource, error)
}

// rawEventSource is the minimal streaming handle the opaque SDK would
// hand back: one RawEvent at a time, or a terminal error.
type rawEventSource interface {
	Recv() (RawEvent, error)
	Close() error
}

// NewClient constructs a production Client. It leaves dial nil, and with
// no dial WatchAddresses returns an ErrAuth-class StreamError.
func NewClient(networkName, endpoint, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		networkName: networkName,
		endpoint:    endpoint,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// dmtrAPIKeyHeader is the single auth header spec §6 names.
const dmtrAPIKeyHeader = "dmtr-api-key"

// WatchAddresses drives the watch stream and decodes apply-action
// transactions into DepositEvents, skipping rollback actions entirely.
// Decoding failures are logged and skipped (spec §4.2's "decoding" error
// class); the stream itself is only closed on an auth failure or ctx
// cancellation.
func (c *Client) WatchAddresses(ctx context.Context, addresses []string) (<-chan Event, error) {
	if c.dial == nil {
		return nil, &StreamError{Class: ErrAuth, Err: errNoTransport}
	}
	src, err := c.dial(ctx, c.endpoint, c.apiKey, addresses)
	if err != nil {
		return nil, &StreamError{Class: ErrAuth, Err: err}
	}

	watched := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		watched[a] = true
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		defer src.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			raw, err := src.Recv()
			if err != nil {
				se := classifyRecvError(err)
				select {
				case out <- Event{Err: se}:
				case <-ctx.Done():
					return
				}
				if se.Class == ErrAuth {
					return
				}
				continue
			}
			if raw.Action != ActionApply {
				continue
			}
			for _, d := range DecodeDeposits(raw.Tx, watched) {
				dep := d
				select {
				case out <- Event{Deposit: &dep}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func classifyRecvError(err error) *StreamError {
	if se, ok := err.(*StreamError); ok {
		return se
	}
	return &StreamError{Class: ErrTransient, Err: err}
}

// SubmitTransaction and WaitForConfirmation satisfy the shared two-RPC
// contract of spec §6 for ledger families where the source and
// destination chain are the same network; this bridge's destination
// flow goes through the destination package instead.
func (c *Client) SubmitTransaction(ctx context.Context, cborBytes []byte) (string, error) {
	return "", errNotImplemented
}

func (c *Client) WaitForConfirmation(ctx context.Context, txHash string) (<-chan string, error) {
	return nil, errNotImplemented
}

// Close is a no-op hint per spec §4.2.
func (c *Client) Close() error { return nil }

var errNoTransport = clientError("no transport configured")
var errNotImplemented = clientError("not implemented by source adapter")

type clientError string

func (e clientError) Error() string { return string(e) }

var _ Adapter = (*Client)(nil)
