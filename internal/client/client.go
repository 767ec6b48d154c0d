package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	confirm "github.com/gagliardetto/solana-go/rpc/sendAndConfirmTransaction"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"rent-reclaim-bot-go/internal/ledger"
)

const confirmTimeout = 2 * time.Minute

// Client represents a Solana RPC client wrapper
type Client struct {
	client     *rpc.Client
	wsEndpoint string
	commitment rpc.CommitmentType
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger

	wsMu     sync.Mutex
	wsClient *ws.Client
}

// ClientConfig contains configuration for Solana client
type ClientConfig struct {
	RPCEndpoint       string
	WSEndpoint        string
	APIKey            string
	Commitment        string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

var _ ledger.Client = (*Client)(nil)

// NewClient creates a new Solana RPC client
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.Commitment == "" {
		config.Commitment = string(rpc.CommitmentConfirmed)
	}

	var rpcClient *rpc.Client
	if config.APIKey != "" {
		rpcClient = rpc.NewWithHeaders(config.RPCEndpoint, map[string]string{
			"Authorization": "Bearer " + config.APIKey,
		})
	} else {
		rpcClient = rpc.New(config.RPCEndpoint)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "solana-rpc",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A closed account or unknown signature is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, rpc.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("RPC circuit breaker state changed")
		},
	})

	return &Client{
		client:     rpcClient,
		wsEndpoint: config.WSEndpoint,
		commitment: rpc.CommitmentType(config.Commitment),
		timeout:    config.Timeout,
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		breaker:    breaker,
		logger:     logger,
	}
}

// call paces and guards a single RPC round trip. It never retries.
func (c *Client) call(ctx context.Context, method string, timeout time.Duration, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn(callCtx)
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	return nil
}

// GetSignaturesForAddress returns one page of signatures, newest first
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, opts ledger.SignaturesOptions) ([]ledger.SignatureInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	limit := opts.Limit
	req := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: c.commitment,
	}
	if opts.Before != "" {
		if req.Before, err = solana.SignatureFromBase58(opts.Before); err != nil {
			return nil, fmt.Errorf("invalid before signature: %w", err)
		}
	}
	if opts.Until != "" {
		if req.Until, err = solana.SignatureFromBase58(opts.Until); err != nil {
			return nil, fmt.Errorf("invalid until signature: %w", err)
		}
	}

	var result []*rpc.TransactionSignature
	err = c.call(ctx, "getSignaturesForAddress", c.timeout, func(ctx context.Context) error {
		var err error
		result, err = c.client.GetSignaturesForAddressWithOpts(ctx, pubkey, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	signatures := make([]ledger.SignatureInfo, 0, len(result))
	for _, s := range result {
		if s == nil {
			continue
		}
		signatures = append(signatures, ledger.SignatureInfo{
			Signature: s.Signature.String(),
			Slot:      s.Slot,
			BlockTime: unixSeconds(s.BlockTime),
			Failed:    s.Err != nil,
		})
	}

	c.logger.WithFields(logrus.Fields{
		"address": address,
		"count":   len(signatures),
		"before":  opts.Before,
	}).Debug("Fetched signature page")

	return signatures, nil
}

// GetTransaction gets transaction information
func (c *Client) GetTransaction(ctx context.Context, signature string) (*ledger.Transaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature: %w", err)
	}

	maxVersion := uint64(0)
	var result *rpc.GetTransactionResult
	err = c.call(ctx, "getTransaction", c.timeout, func(ctx context.Context) error {
		var err error
		result, err = c.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	return convertTransaction(signature, result)
}

// GetAccountInfo gets account information, nil when the account does not exist
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*ledger.AccountInfo, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	var result *rpc.GetAccountInfoResult
	err = c.call(ctx, "getAccountInfo", c.timeout, func(ctx context.Context) error {
		var err error
		result, err = c.client.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, nil
	}

	info := &ledger.AccountInfo{
		Address:  address,
		Lamports: result.Value.Lamports,
		Owner:    result.Value.Owner.String(),
	}
	if result.Value.Data != nil {
		info.Data = result.Value.Data.GetBinary()
	}
	return info, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var result *rpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", c.timeout, func(ctx context.Context) error {
		var err error
		result, err = c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		return err
	})
	if err != nil {
		return solana.Hash{}, err
	}

	return result.Value.Blockhash, nil
}

// SendAndConfirmTransaction submits a signed transaction and waits for confirmation over websocket
func (c *Client) SendAndConfirmTransaction(ctx context.Context, transaction *solana.Transaction) (solana.Signature, error) {
	wsClient, err := c.websocket(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	var sig solana.Signature
	err = c.call(ctx, "sendAndConfirmTransaction", confirmTimeout, func(ctx context.Context) error {
		var err error
		sig, err = confirm.SendAndConfirmTransaction(ctx, c.client, wsClient, transaction)
		return err
	})
	if err != nil {
		return solana.Signature{}, err
	}

	return sig, nil
}

func (c *Client) websocket(ctx context.Context) (*ws.Client, error) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.wsClient != nil {
		return c.wsClient, nil
	}
	if c.wsEndpoint == "" {
		return nil, errors.New("websocket endpoint is not configured")
	}

	wsClient, err := ws.Connect(ctx, c.wsEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket %s: %w", c.wsEndpoint, err)
	}
	c.wsClient = wsClient
	return wsClient, nil
}

// Close releases the websocket connection if one was opened
func (c *Client) Close() {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}
}
