package swapapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/httpx"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

const defaultBase = "https://aggregator.tidal.exchange"

// Client talks to the DEX-aggregator trade API. Quotes are scoped to the
// swapper address and must be fetched fresh per execution; they are never
// cached here.
type Client struct {
	http    *httpx.Client
	baseURL string
	apiKey  string
	now     func() time.Time
}

func New(httpClient *httpx.Client, apiKey string) *Client {
	return &Client{http: httpClient, baseURL: defaultBase, apiKey: apiKey, now: time.Now}
}

// NewWithBase is used by tests to point at a fake server.
func NewWithBase(httpClient *httpx.Client, baseURL, apiKey string) *Client {
	c := New(httpClient, apiKey)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// QuoteRequest describes one exact-input swap quote.
type QuoteRequest struct {
	ChainID     int64
	Swapper     string
	SellToken   registry.Token
	BuyToken    registry.Token
	SellAmount  string
	SlippagePct *float64
}

// Quote is an executable swap: the transaction to submit plus the router
// address that must hold an allowance for the sell token.
type Quote struct {
	SellAmount      string `json:"sell_amount"`
	BuyAmount       string `json:"buy_amount"`
	To              string `json:"to"`
	Data            string `json:"data"`
	Value           string `json:"value"`
	AllowanceTarget string `json:"allowance_target"`
	Route           string `json:"route"`
	FetchedAt       string `json:"fetched_at"`
}

type quoteResponse struct {
	SellAmount      string `json:"sellAmount"`
	BuyAmount       string `json:"buyAmount"`
	To              string `json:"to"`
	Data            string `json:"data"`
	Value           string `json:"value"`
	AllowanceTarget string `json:"allowanceTarget"`
	Route           string `json:"route"`
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if strings.TrimSpace(req.Swapper) == "" {
		return Quote{}, clierr.New(clierr.CodeUsage, "swap quote requires the swapper address")
	}
	if strings.TrimSpace(req.SellAmount) == "" {
		return Quote{}, clierr.New(clierr.CodeUsage, "swap quote requires a sell amount in base units")
	}

	payload := map[string]any{
		"chainId":    req.ChainID,
		"sellToken":  req.SellToken.Address,
		"buyToken":   req.BuyToken.Address,
		"sellAmount": req.SellAmount,
		"swapper":    req.Swapper,
	}
	if req.SlippagePct != nil {
		payload["slippageTolerance"] = *req.SlippagePct
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "marshal swap quote request", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-api-key"] = c.apiKey
	}
	var resp quoteResponse
	if _, err := httpx.DoBodyJSON(ctx, c.http, http.MethodPost, c.baseURL+"/v1/quote", buf, headers, &resp); err != nil {
		return Quote{}, err
	}

	if strings.TrimSpace(resp.To) == "" || strings.TrimSpace(resp.Data) == "" {
		return Quote{}, clierr.New(clierr.CodeUnavailable, "aggregator quote missing transaction payload")
	}
	if strings.TrimSpace(resp.AllowanceTarget) == "" {
		return Quote{}, clierr.New(clierr.CodeUnavailable, "aggregator quote missing allowance target")
	}
	value := strings.TrimSpace(resp.Value)
	if value == "" {
		value = "0"
	}

	return Quote{
		SellAmount:      resp.SellAmount,
		BuyAmount:       resp.BuyAmount,
		To:              resp.To,
		Data:            resp.Data,
		Value:           value,
		AllowanceTarget: resp.AllowanceTarget,
		Route:           resp.Route,
		FetchedAt:       c.now().UTC().Format(time.RFC3339),
	}, nil
}
