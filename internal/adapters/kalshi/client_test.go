package kalshi_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/oddsbot/internal/adapters/kalshi"
	"github.com/alejandrodnm/oddsbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../../../testdata/fixtures/" + name)
	require.NoError(t, err)
	return data
}

func newKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func newSignedClient(t *testing.T, srv *httptest.Server) (*kalshi.Client, *rsa.PrivateKey) {
	t.Helper()
	key, pemBytes := newKey(t)
	c := kalshi.NewClient(srv.URL)
	c.SetRetryWait(time.Millisecond)
	require.NoError(t, c.SetCredentials("key-123", pemBytes))
	return c, key
}

func TestFetchQuotes_Success(t *testing.T) {
	data := fixture(t, "kalshi_markets.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "KXNBAGAME", r.URL.Query().Get("series_ticker"))
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		assert.Empty(t, r.Header.Get("KALSHI-ACCESS-KEY"))
		w.Write(data)
	}))
	defer srv.Close()

	c := kalshi.NewClient(srv.URL)
	quotes, err := c.FetchQuotes(context.Background(), "KXNBAGAME")
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	q := quotes[0]
	assert.Equal(t, "KXNBAGAME-25OCT21HOUOKC-OKC", q.Symbol)
	assert.Equal(t, "KXNBAGAME-25OCT21HOUOKC", q.EventSymbol)
	assert.Equal(t, "KXNBAGAME", q.Series)
	assert.Equal(t, 65, q.YesAsk)
	assert.Equal(t, 63, q.YesBid)
	assert.True(t, q.IsOpen())
	assert.Equal(t, time.Date(2025, 10, 22, 3, 0, 0, 0, time.UTC), q.CloseTime.UTC())

	// Missing NO prices stay zero and are derived on demand.
	assert.Zero(t, quotes[1].NoAsk)
	assert.Equal(t, 66, quotes[1].AskFor(domain.SideNo))
}

func TestFetchQuotes_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			assert.Empty(t, r.URL.Query().Get("cursor"))
			w.Write([]byte(`{"markets":[{"ticker":"KXNBAGAME-A-X","yes_ask":40}],"cursor":"next"}`))
			return
		}
		assert.Equal(t, "next", r.URL.Query().Get("cursor"))
		w.Write([]byte(`{"markets":[{"ticker":"KXNBAGAME-B-Y","yes_ask":55}],"cursor":""}`))
	}))
	defer srv.Close()

	quotes, err := kalshi.NewClient(srv.URL).FetchQuotes(context.Background(), "KXNBAGAME")
	require.NoError(t, err)
	assert.Len(t, quotes, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestFetchQuote_Single(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/KXNBAGAME-25OCT21HOUOKC-OKC", r.URL.Path)
		w.Write([]byte(`{"market":{"ticker":"KXNBAGAME-25OCT21HOUOKC-OKC","yes_bid":61,"yes_ask":62,"status":"active"}}`))
	}))
	defer srv.Close()

	q, err := kalshi.NewClient(srv.URL).FetchQuote(context.Background(), "KXNBAGAME-25OCT21HOUOKC-OKC")
	require.NoError(t, err)
	assert.Equal(t, "KXNBAGAME", q.Series)
	assert.Equal(t, 62, q.PriceCents())
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"markets":[],"cursor":""}`))
	}))
	defer srv.Close()

	c := kalshi.NewClient(srv.URL)
	c.SetRetryWait(time.Millisecond)
	_, err := c.FetchQuotes(context.Background(), "KXNBAGAME")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
}

func TestDo_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"invalid_parameters","message":"bad series"}}`))
	}))
	defer srv.Close()

	c := kalshi.NewClient(srv.URL)
	c.SetRetryWait(time.Millisecond)
	_, err := c.FetchQuotes(context.Background(), "NOPE")
	require.Error(t, err)

	var apiErr *kalshi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_parameters", apiErr.Code)
	assert.Equal(t, "bad series", apiErr.Message)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSignedEndpoints_RequireCredentials(t *testing.T) {
	c := kalshi.NewClient("http://127.0.0.1:0")
	_, err := c.GetBalance(context.Background())
	assert.ErrorIs(t, err, kalshi.ErrNoCredentials)
}

func TestSetCredentials_InvalidPEM(t *testing.T) {
	c := kalshi.NewClient("")
	assert.Error(t, c.SetCredentials("k", []byte("not a key")))
	assert.False(t, c.HasCredentials())
}

func TestGetBalance_SignsRequest(t *testing.T) {
	var key *rsa.PrivateKey
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolio/balance", r.URL.Path)
		assert.Equal(t, "key-123", r.Header.Get("KALSHI-ACCESS-KEY"))

		ts := r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		sig, err := base64.StdEncoding.DecodeString(r.Header.Get("KALSHI-ACCESS-SIGNATURE"))
		assert.NoError(t, err)
		hash := sha256.Sum256([]byte(ts + r.Method + r.URL.Path))
		assert.NoError(t, rsa.VerifyPSS(&key.PublicKey, crypto.SHA256, hash[:], sig, &rsa.PSSOptions{
			SaltLength: rsa.PSSSaltLengthEqualsHash,
		}))

		w.Write([]byte(`{"balance":12345}`))
	}))
	defer srv.Close()

	c, k := newSignedClient(t, srv)
	key = k

	balance, err := c.GetBalance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 123.45, balance, 1e-9)
}

func TestGetPositions_SkipsFlat(t *testing.T) {
	data := fixture(t, "kalshi_positions.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolio/positions", r.URL.Path)
		w.Write(data)
	}))
	defer srv.Close()

	c, _ := newSignedClient(t, srv)
	positions, err := c.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, domain.SideYes, positions[0].Side)
	assert.Equal(t, 10, positions[0].Contracts())
	assert.InDelta(t, 64.0, positions[0].EntryPriceCents(), 1e-9)
	assert.False(t, positions[0].OpenedAt.IsZero())

	assert.Equal(t, domain.SideNo, positions[1].Side)
	assert.InDelta(t, 65.0, positions[1].EntryPriceCents(), 1e-9)
}

func TestGetOrders_MapsSidePrice(t *testing.T) {
	data := fixture(t, "kalshi_orders.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resting", r.URL.Query().Get("status"))
		w.Write(data)
	}))
	defer srv.Close()

	c, _ := newSignedClient(t, srv)
	orders, err := c.GetOrders(context.Background(), domain.OrderResting)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, 72, orders[0].LimitPriceCents)
	assert.Equal(t, 10, orders[0].Quantity)
	assert.Equal(t, 4, orders[0].RemainingCount)
	assert.True(t, orders[0].IsOpen())

	assert.Equal(t, domain.SideNo, orders[1].Side)
	assert.Equal(t, 65, orders[1].LimitPriceCents)
	assert.Equal(t, 3, orders[1].Quantity, "initial count defaults to remaining")
}

func TestCreateOrder_SendsOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := newSignedClient(t, srv)
	_, err := c.CreateOrder(context.Background(), domain.OrderSpec{
		Symbol: "KXNBAGAME-25OCT21HOUOKC-OKC", Side: domain.SideYes, Action: domain.ActionBuy,
		Quantity: 5, LimitPriceCents: 40, IdempotencyToken: "tok",
	})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestCreateOrder_Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolio/orders", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "no", body["side"])
		assert.Equal(t, "limit", body["type"])
		assert.EqualValues(t, 35, body["no_price"])
		assert.NotContains(t, body, "yes_price")
		assert.Equal(t, "tok-9", body["client_order_id"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order":{"order_id":"ord-9","status":"resting"}}`))
	}))
	defer srv.Close()

	c, _ := newSignedClient(t, srv)
	id, err := c.CreateOrder(context.Background(), domain.OrderSpec{
		Symbol: "KXNBAGAME-25OCT21HOUOKC-HOU", Side: domain.SideNo, Action: domain.ActionBuy,
		Quantity: 20, LimitPriceCents: 35, IdempotencyToken: "tok-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-9", id)
}

func TestCreateOrder_ImmediatelyCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"order":{"order_id":"ord-10","status":"canceled"}}`))
	}))
	defer srv.Close()

	c, _ := newSignedClient(t, srv)
	_, err := c.CreateOrder(context.Background(), domain.OrderSpec{
		Symbol: "KXNBAGAME-25OCT21HOUOKC-HOU", Side: domain.SideYes, Action: domain.ActionBuy,
		Quantity: 1, LimitPriceCents: 35, IdempotencyToken: "tok-10",
	})
	assert.ErrorContains(t, err, "cancelled")
}

func TestCreateOrder_InvalidSpec(t *testing.T) {
	c := kalshi.NewClient("http://127.0.0.1:0")
	_, err := c.CreateOrder(context.Background(), domain.OrderSpec{Symbol: "X", Side: domain.SideYes, Action: domain.ActionBuy})
	assert.Error(t, err)
}
