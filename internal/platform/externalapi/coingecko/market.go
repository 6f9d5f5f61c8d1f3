package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"crypto_backend/internal/feature/prices/domain/entity"
	"crypto_backend/internal/feature/prices/usecase"
	"crypto_backend/internal/platform/externalapi/coingecko/dto"
	"crypto_backend/internal/platform/metrics"
)

const (
	endpointMarketChart = "market_chart"
	endpointMarkets     = "markets"

	apiKeyHeader = "x-cg-demo-api-key"
)

// CoinGeckoMarket はCoinGecko APIから価格データを取得するMarketRepository実装です。
// リトライは行わず、失敗は ErrFetchUnavailable でラップして返します。
type CoinGeckoMarket struct {
	cfg    Config
	client *http.Client
}

// CoinGeckoMarketがMarketRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.MarketRepository = (*CoinGeckoMarket)(nil)

// NewCoinGeckoMarket は指定された設定とHTTPクライアントでCoinGeckoMarketの新しいインスタンスを生成します。
func NewCoinGeckoMarket(cfg Config, client *http.Client) *CoinGeckoMarket {
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = defaultVsCurrency
	}
	return &CoinGeckoMarket{cfg: cfg, client: client}
}

// GetMarketChart は過去 days 日分の価格を古い順に返します。
//
// エンドポイント例:
// GET /coins/bitcoin/market_chart?vs_currency=usd&days=7
func (m *CoinGeckoMarket) GetMarketChart(ctx context.Context, coin string, days int) ([]entity.PriceSample, error) {
	q := url.Values{}
	q.Set("vs_currency", m.cfg.VsCurrency)
	q.Set("days", strconv.Itoa(days))
	u := fmt.Sprintf("%s/coins/%s/market_chart?%s", m.cfg.BaseURL, url.PathEscape(coin), q.Encode())

	var body dto.MarketChartResponse
	if err := m.getJSON(ctx, endpointMarketChart, u, &body); err != nil {
		return nil, fmt.Errorf("market chart %s: %w", coin, err)
	}

	samples := make([]entity.PriceSample, 0, len(body.Prices))
	for _, p := range body.Prices {
		if len(p) < 2 {
			continue
		}
		samples = append(samples, entity.PriceSample{
			Time:  time.UnixMilli(int64(p[0])).UTC(),
			Price: p[1],
		})
	}
	if len(samples) == 0 {
		metrics.UpstreamRequests.WithLabelValues(endpointMarketChart, "empty").Inc()
		return nil, fmt.Errorf("market chart %s: empty result: %w", coin, usecase.ErrFetchUnavailable)
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples, nil
}

// GetQuote は現在価格・24時間変動率・出来高を返します。
//
// エンドポイント例:
// GET /coins/markets?vs_currency=usd&ids=bitcoin&price_change_percentage=24h
func (m *CoinGeckoMarket) GetQuote(ctx context.Context, coin string) (entity.MarketQuote, error) {
	q := url.Values{}
	q.Set("vs_currency", m.cfg.VsCurrency)
	q.Set("ids", coin)
	q.Set("price_change_percentage", "24h")
	u := fmt.Sprintf("%s/coins/markets?%s", m.cfg.BaseURL, q.Encode())

	var body []dto.MarketItem
	if err := m.getJSON(ctx, endpointMarkets, u, &body); err != nil {
		return entity.MarketQuote{}, fmt.Errorf("quote %s: %w", coin, err)
	}
	if len(body) == 0 || body[0].CurrentPrice == nil {
		metrics.UpstreamRequests.WithLabelValues(endpointMarkets, "empty").Inc()
		return entity.MarketQuote{}, fmt.Errorf("quote %s: empty result: %w", coin, usecase.ErrFetchUnavailable)
	}

	item := body[0]
	quote := entity.MarketQuote{
		Coin:   coin,
		Name:   item.Name,
		Symbol: strings.ToUpper(item.Symbol),
		Price:  *item.CurrentPrice,
	}
	if item.PriceChangePercentage24h != nil {
		quote.Change24h = *item.PriceChangePercentage24h
	}
	if item.TotalVolume != nil {
		quote.Volume = *item.TotalVolume
	}
	return quote, nil
}

// getJSON はGETリクエストを送信し、レスポンスを out にデコードします。
// 429は ErrRateLimited、その他の失敗は ErrFetchUnavailable でラップします。
func (m *CoinGeckoMarket) getJSON(ctx context.Context, endpoint, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", usecase.ErrFetchUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if m.cfg.APIKey != "" {
		req.Header.Set(apiKeyHeader, m.cfg.APIKey)
	}

	res, err := m.client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: %w", usecase.ErrFetchUnavailable, err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode == http.StatusTooManyRequests {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "rate_limited").Inc()
		return usecase.ErrRateLimited
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("coingecko http %d: %w", res.StatusCode, usecase.ErrFetchUnavailable)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("decode: %w: %w", usecase.ErrFetchUnavailable, err)
	}
	metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
	return nil
}
