package destination

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// Client is the production Adapter implementation, shaped around the
// Lucid-style builder chain named in spec §6. The actual CBOR encoding
// and gRPC submission transport are out of scope (spec §1); submit is
// delegated to transport and confirmation to waiter. NewClient sets
// neither, so on a Client built by NewClient both Submit and
// WaitForConfirmation return errNoTransport.
type Client struct {
	networkName string
	provider    string
	logger      *zap.Logger

	transport func(ctx context.Context, cborBytes []byte) (string, error)
	waiter    func(ctx context.Context, txHash string) (<-chan ConfirmationStage, error)
}

func NewClient(networkName, provider string, logger *zap.Logger) *Client {
	return &Client{networkName: networkName, provider: provider, logger: logger}
}

func (c *Client) NewTxBuilder() TxBuilder {
	return &builder{}
}

func (c *Client) Submit(ctx context.Context, signed SignedTx) (string, error) {
	if c.transport == nil {
		return "", errNoTransport
	}
	return c.transport(ctx, signed.Bytes())
}

func (c *Client) WaitForConfirmation(ctx context.Context, txHash string) (<-chan ConfirmationStage, error) {
	if c.waiter == nil {
		return nil, errNoTransport
	}
	return c.waiter(ctx, txHash)
}

func (c *Client) Close() error { return nil }

var _ Adapter = (*Client)(nil)

type clientError string

func (e clientError) Error() string { return string(e) }

var errNoTransport = clientError("no transport configured")

// payment is a single pay-to-address output queued on a builder.
type payment struct {
	Address string
	Amount  uint64
}

type builder struct {
	payments []payment
	labels   map[uint64]Metadata
}

func (b *builder) PayToAddress(address string, amount uint64) TxBuilder {
	b.payments = append(b.payments, payment{Address: address, Amount: amount})
	return b
}

func (b *builder) AttachMetadata(label uint64, value Metadata) TxBuilder {
	if b.labels == nil {
		b.labels = make(map[uint64]Metadata)
	}
	b.labels[label] = value
	return b
}

func (b *builder) Complete() (UnsignedTx, error) {
	payloadsCopy := make([]payment, len(b.payments))
	copy(payloadsCopy, b.payments)
	labelsCopy := make(map[uint64]Metadata, len(b.labels))
	for k, v := range b.labels {
		labelsCopy[k] = v
	}
	return &unsignedTx{payments: payloadsCopy, labels: labelsCopy}, nil
}

type unsignedTx struct {
	payments []payment
	labels   map[uint64]Metadata
}

func (u *unsignedTx) Sign(seed string) (SignedTx, error) {
	body := canonicalBody(u.payments, u.labels, seed)
	hash := sha256.Sum256(body)
	return &signedTx{body: body, hash: hex.EncodeToString(hash[:])}, nil
}

type signedTx struct {
	body []byte
	hash string
}

func (s *signedTx) ToHash() string { return s.hash }
func (s *signedTx) Bytes() []byte  { return s.body }

// canonicalBody produces a deterministic byte encoding of the
// transaction's payments and metadata so Sign -> ToHash is reproducible
// without depending on the opaque CBOR builder this adapter stands in
// for (spec §1's "opaque ledger adapter" carve-out).
func canonicalBody(payments []payment, labels map[uint64]Metadata, seed string) []byte {
	type wire struct {
		Payments []payment         `json:"payments"`
		Labels   map[string]any    `json:"labels"`
		Seed     string            `json:"seed"`
	}
	strLabels := make(map[string]any, len(labels))
	keys := make([]uint64, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		strLabels[strconv.FormatUint(k, 10)] = labels[k]
	}
	raw, _ := json.Marshal(wire{Payments: payments, Labels: strLabels, Seed: seed})
	return raw
}
