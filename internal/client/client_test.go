package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rent-reclaim-bot-go/internal/ledger"
	"rent-reclaim-bot-go/internal/ledger/ledgertest"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []interface{}   `json:"params"`
}

// newRPCServer answers JSON-RPC calls with the result returned by handle.
func newRPCServer(t *testing.T, handle func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handle(req),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	log, _ := test.NewNullLogger()
	return NewClient(ClientConfig{RPCEndpoint: url, RequestsPerSecond: 1000, Burst: 100}, log)
}

func TestClient_GetSignaturesForAddress(t *testing.T) {
	sigOK := ledgertest.NewSignature(1)
	sigFailed := ledgertest.NewSignature(2)
	before := ledgertest.NewSignature(9)

	var gotMethod string
	var gotOpts map[string]interface{}
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		gotMethod = req.Method
		if len(req.Params) > 1 {
			gotOpts, _ = req.Params[1].(map[string]interface{})
		}
		return []map[string]interface{}{
			{"signature": sigOK, "slot": 10, "err": nil, "blockTime": 1700000000},
			{"signature": sigFailed, "slot": 9, "err": map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		}
	})

	c := newTestClient(t, server.URL)
	sigs, err := c.GetSignaturesForAddress(context.Background(), ledgertest.NewAddress(1), ledger.SignaturesOptions{Limit: 100, Before: before})
	require.NoError(t, err)

	assert.Equal(t, "getSignaturesForAddress", gotMethod)
	assert.EqualValues(t, 100, gotOpts["limit"])
	assert.Equal(t, before, gotOpts["before"])

	require.Len(t, sigs, 2)
	assert.Equal(t, sigOK, sigs[0].Signature)
	assert.False(t, sigs[0].Failed)
	require.NotNil(t, sigs[0].BlockTime)
	assert.Equal(t, int64(1700000000), *sigs[0].BlockTime)
	assert.True(t, sigs[1].Failed)
	assert.Nil(t, sigs[1].BlockTime)
}

func TestClient_GetSignaturesForAddress_InvalidAddress(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	_, err := c.GetSignaturesForAddress(context.Background(), "bad", ledger.SignaturesOptions{Limit: 1})
	require.Error(t, err)
}

func TestClient_GetAccountInfo_Closed(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": nil}
	})

	info, err := newTestClient(t, server.URL).GetAccountInfo(context.Background(), ledgertest.NewAddress(1))
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestClient_GetAccountInfo_TokenAccount(t *testing.T) {
	mint := ledgertest.NewAddress(2)
	owner := ledgertest.NewAddress(3)
	data := ledgertest.EncodeTokenAccount(mint, owner, 0)

	server := newRPCServer(t, func(req rpcRequest) interface{} {
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
				"executable": false,
				"lamports":   2039280,
				"owner":      ledger.TokenProgramID,
				"rentEpoch":  0,
			},
		}
	})

	info, err := newTestClient(t, server.URL).GetAccountInfo(context.Background(), ledgertest.NewAddress(1))
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, uint64(2039280), info.Lamports)
	assert.True(t, info.IsTokenAccount())

	acc, err := ledger.DecodeTokenAccount(info.Data)
	require.NoError(t, err)
	assert.Equal(t, owner, acc.Owner)
	assert.Equal(t, mint, acc.Mint)
}

func TestClient_GetTransaction_NotFound(t *testing.T) {
	server := newRPCServer(t, func(req rpcRequest) interface{} { return nil })

	tx, err := newTestClient(t, server.URL).GetTransaction(context.Background(), ledgertest.NewSignature(1))
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestConvertBalances_ResolvesLoadedAddresses(t *testing.T) {
	static := solana.PublicKeySlice{
		solana.MustPublicKeyFromBase58(ledgertest.NewAddress(10)),
		solana.MustPublicKeyFromBase58(ledgertest.NewAddress(11)),
	}
	loaded := rpc.LoadedAddresses{
		Writable: solana.PublicKeySlice{solana.MustPublicKeyFromBase58(ledgertest.NewAddress(12))},
		ReadOnly: solana.PublicKeySlice{solana.MustPublicKeyFromBase58(ledgertest.NewAddress(13))},
	}
	keys := accountKeys(static, loaded)
	require.Len(t, keys, 4)

	owner := solana.MustPublicKeyFromBase58(ledgertest.NewAddress(20))
	mint := solana.MustPublicKeyFromBase58(ledgertest.NewAddress(21))
	balances := convertBalances(keys, []rpc.TokenBalance{
		{AccountIndex: 2, Owner: &owner, Mint: mint, UiTokenAmount: &rpc.UiTokenAmount{Amount: "0"}},
		{AccountIndex: 9, Mint: mint},
	})

	require.Len(t, balances, 2)
	assert.Equal(t, ledgertest.NewAddress(12), balances[0].Account)
	assert.Equal(t, owner.String(), balances[0].Owner)
	assert.Equal(t, mint.String(), balances[0].Mint)
	assert.Equal(t, "0", balances[0].Amount)

	assert.Empty(t, balances[1].Account, "index outside key list stays unresolved")
	assert.Empty(t, balances[1].Owner)
}

func TestClient_WebsocketConnectsOnceAndCloses(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	log, _ := test.NewNullLogger()
	c := NewClient(ClientConfig{RPCEndpoint: server.URL, WSEndpoint: "ws" + strings.TrimPrefix(server.URL, "http")}, log)

	first, err := c.websocket(context.Background())
	require.NoError(t, err)
	second, err := c.websocket(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	c.Close()
	assert.Nil(t, c.wsClient)
}

func TestClient_WebsocketRequiresEndpoint(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := NewClient(ClientConfig{RPCEndpoint: "http://127.0.0.1:0"}, log)

	_, err := c.websocket(context.Background())
	require.Error(t, err)
}
