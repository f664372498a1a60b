package yield

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/httpx"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

const defaultYieldsBase = "https://yields.llama.fi"

// apySanityMax treats APY readings at or above 100% as broken upstream data.
const apySanityMax = 100.0

// Client fetches and normalizes pool listings from the DeFiLlama yields API.
type Client struct {
	http    *httpx.Client
	baseURL string
	now     func() time.Time
}

func NewClient(httpClient *httpx.Client) *Client {
	return &Client{http: httpClient, baseURL: defaultYieldsBase, now: time.Now}
}

// NewClientWithBase is used by tests to point at a fake server.
func NewClientWithBase(httpClient *httpx.Client, baseURL string) *Client {
	c := NewClient(httpClient)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type poolsEnvelope struct {
	Status string      `json:"status"`
	Data   []poolEntry `json:"data"`
}

type poolEntry struct {
	Pool       string   `json:"pool"`
	Chain      string   `json:"chain"`
	Project    string   `json:"project"`
	Symbol     string   `json:"symbol"`
	APY        *float64 `json:"apy"`
	APYBase    *float64 `json:"apyBase"`
	APYReward  *float64 `json:"apyReward"`
	APYMean30d *float64 `json:"apyMean30d"`
	TVLUSD     *float64 `json:"tvlUsd"`
	Stablecoin bool     `json:"stablecoin"`
	ILRisk     string   `json:"ilRisk"`
	Exposure   string   `json:"exposure"`
	URL        string   `json:"url"`
}

// FetchPools pulls the full upstream listing, drops unsupported or broken
// entries, scores risk per pool and returns the result sorted APY-descending.
func (c *Client) FetchPools(ctx context.Context) ([]model.YieldOpportunity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/pools", nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build yields request", err)
	}
	var env poolsEnvelope
	if _, err := c.http.DoJSON(ctx, req, &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 {
		return nil, clierr.New(clierr.CodeUnavailable, "yields API returned no pools")
	}

	fetchedAt := c.now().UTC().Format(time.RFC3339)
	out := make([]model.YieldOpportunity, 0, len(env.Data))
	for _, p := range env.Data {
		if !registry.IsSupportedChain(p.Chain) {
			continue
		}
		apy := numOrZero(p.APY)
		if apy <= 0 || apy >= apySanityMax {
			continue
		}
		tvl := numOrZero(p.TVLUSD)
		if tvl < minPoolTVLUSD {
			continue
		}
		ilRisk := strings.EqualFold(strings.TrimSpace(p.ILRisk), "yes")
		out = append(out, model.YieldOpportunity{
			PoolID:     p.Pool,
			Chain:      p.Chain,
			Protocol:   p.Project,
			Symbol:     strings.ToUpper(strings.TrimSpace(p.Symbol)),
			APY:        apy,
			APYBase:    numOrZero(p.APYBase),
			APYReward:  numOrZero(p.APYReward),
			APYMean30d: numOrZero(p.APYMean30d),
			TVLUSD:     tvl,
			Stablecoin: p.Stablecoin,
			ILRisk:     ilRisk,
			Exposure:   strings.ToLower(strings.TrimSpace(p.Exposure)),
			RiskLevel:  scoreRisk(p.Project, p.Exposure, p.Stablecoin, ilRisk, tvl),
			SourceURL:  p.URL,
			FetchedAt:  fetchedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].APY > out[j].APY
	})
	return out, nil
}

func numOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0
	}
	return *v
}
