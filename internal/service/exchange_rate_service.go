package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/filtrotek/storefront/internal/cache"
	"github.com/filtrotek/storefront/internal/utils"
)

const (
	RateSourceAPI      = "api"
	RateSourceCache    = "cache"
	RateSourceFallback = "fallback"
)

// RateFetcher queries a live exchange rate.
type RateFetcher interface {
	Rate(ctx context.Context, currency string) (float64, error)
}

// RateStore caches rates between requests.
type RateStore interface {
	Get(ctx context.Context, base, quote string) (float64, error)
	Set(ctx context.Context, base, quote string, rate float64) error
}

// ExchangeRate is the USD to MXN rate and where it came from.
type ExchangeRate struct {
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Rate      float64   `json:"rate"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Decimal returns the rate as a decimal.
func (r *ExchangeRate) Decimal() decimal.Decimal {
	return decimal.NewFromFloat(r.Rate)
}

// ExchangeRateService serves the USD to MXN rate; it never fails.
type ExchangeRateService struct {
	api      RateFetcher
	store    RateStore
	fallback float64
	clock    utils.Clock
}

// NewExchangeRateService creates an ExchangeRateService. store may be nil.
func NewExchangeRateService(api RateFetcher, store RateStore, fallback float64, clock utils.Clock) *ExchangeRateService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &ExchangeRateService{api: api, store: store, fallback: fallback, clock: clock}
}

// Current returns the cached rate, a fresh one, or the configured fallback.
func (s *ExchangeRateService) Current(ctx context.Context) *ExchangeRate {
	rate := &ExchangeRate{Base: "USD", Quote: "MXN", FetchedAt: s.clock.Now()}

	if s.store != nil {
		v, err := s.store.Get(ctx, rate.Base, rate.Quote)
		if err == nil && v > 0 {
			rate.Rate, rate.Source = v, RateSourceCache
			return rate
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("Exchange rate cache read failed")
		}
	}

	v, err := s.api.Rate(ctx, rate.Quote)
	if err != nil {
		log.Warn().Err(err).Float64("fallback", s.fallback).Msg("Exchange rate API unavailable; using fallback")
		rate.Rate, rate.Source = s.fallback, RateSourceFallback
		return rate
	}

	rate.Rate, rate.Source = v, RateSourceAPI
	if s.store != nil {
		if err := s.store.Set(ctx, rate.Base, rate.Quote, v); err != nil {
			log.Warn().Err(err).Msg("Exchange rate cache write failed")
		}
	}
	return rate
}
