package swapapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xSardius/tidal-sub000/internal/httpx"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

var (
	testUSDC = registry.Token{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6}
	testWETH = registry.Token{Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18}
)

func TestQuoteSendsScopedRequest(t *testing.T) {
	var gotBody map[string]any
	var gotKey string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{
			"sellAmount":"25000000",
			"buyAmount":"7100000000000000",
			"to":"0x2222222222222222222222222222222222222222",
			"data":"0xdeadbeef",
			"value":"0",
			"allowanceTarget":"0x3333333333333333333333333333333333333333",
			"route":"usdc->weth"
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewWithBase(httpx.New(2*time.Second, 0), srv.URL, "secret")
	slippage := 0.5
	quote, err := c.Quote(context.Background(), QuoteRequest{
		ChainID:     8453,
		Swapper:     "0x1111111111111111111111111111111111111111",
		SellToken:   testUSDC,
		BuyToken:    testWETH,
		SellAmount:  "25000000",
		SlippagePct: &slippage,
	})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header missing: %q", gotKey)
	}
	if gotBody["swapper"] != "0x1111111111111111111111111111111111111111" {
		t.Fatalf("swapper not forwarded: %v", gotBody["swapper"])
	}
	if gotBody["sellToken"] != testUSDC.Address {
		t.Fatalf("sell token not forwarded: %v", gotBody["sellToken"])
	}
	if gotBody["slippageTolerance"] != 0.5 {
		t.Fatalf("slippage not forwarded: %v", gotBody["slippageTolerance"])
	}
	if quote.AllowanceTarget != "0x3333333333333333333333333333333333333333" {
		t.Fatalf("allowance target lost: %q", quote.AllowanceTarget)
	}
	if quote.FetchedAt == "" {
		t.Fatal("quote should carry a fetch timestamp")
	}
}

func TestQuoteRequiresSwapper(t *testing.T) {
	c := NewWithBase(httpx.New(2*time.Second, 0), "http://127.0.0.1:0", "")
	_, err := c.Quote(context.Background(), QuoteRequest{
		ChainID:    8453,
		SellToken:  testUSDC,
		BuyToken:   testWETH,
		SellAmount: "1",
	})
	if err == nil {
		t.Fatal("expected an error for a missing swapper")
	}
}

func TestQuoteRejectsIncompletePayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sellAmount":"1","buyAmount":"2","to":"0x22","data":""}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewWithBase(httpx.New(2*time.Second, 0), srv.URL, "")
	_, err := c.Quote(context.Background(), QuoteRequest{
		ChainID:    8453,
		Swapper:    "0x11",
		SellToken:  testUSDC,
		BuyToken:   testWETH,
		SellAmount: "1",
	})
	if err == nil {
		t.Fatal("expected an error for a quote without calldata")
	}
}

func TestQuoteDefaultsValueToZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/quote", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"sellAmount":"1","buyAmount":"2",
			"to":"0x2222222222222222222222222222222222222222",
			"data":"0x00",
			"allowanceTarget":"0x3333333333333333333333333333333333333333"
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewWithBase(httpx.New(2*time.Second, 0), srv.URL, "")
	quote, err := c.Quote(context.Background(), QuoteRequest{
		ChainID:    8453,
		Swapper:    "0x11",
		SellToken:  testUSDC,
		BuyToken:   testWETH,
		SellAmount: "1",
	})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.Value != "0" {
		t.Fatalf("missing value should default to 0, got %q", quote.Value)
	}
}
