package external

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/drugshield-risk-server/internal/domain"
)

// ResilientClient wraps the terminology and label clients with circuit
// breakers and the optional shared Redis cache. When a breaker is open the
// caller gets the error immediately; the analyzer treats that as missing
// knowledge, not a failed request.
type ResilientClient struct {
	rxnorm  *RxNormClient
	openFDA *OpenFDAClient
	cache   *CacheClient
	logger  *logrus.Logger

	rxnormBreaker  *gobreaker.CircuitBreaker
	openFDABreaker *gobreaker.CircuitBreaker
}

// NewResilientClient creates terminology clients guarded by circuit
// breakers. cache may be nil when Redis is disabled.
func NewResilientClient(apiConfig domain.ExternalAPIConfig, cache *CacheClient, logger *logrus.Logger) *ResilientClient {
	if logger == nil {
		logger = logrus.New()
	}

	onStateChange := func(name string, from gobreaker.State, to gobreaker.State) {
		logger.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from.String(),
			"to":      to.String(),
		}).Warn("Circuit breaker state changed")
	}

	return &ResilientClient{
		rxnorm:  NewRxNormClient(apiConfig.RxNorm),
		openFDA: NewOpenFDAClient(apiConfig.OpenFDA),
		cache:   cache,
		logger:  logger,
		rxnormBreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "RxNorm",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: onStateChange,
		}),
		openFDABreaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "OpenFDA",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     120 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: onStateChange,
		}),
	}
}

// ResolveName resolves a medication name through the cache and breaker.
func (r *ResilientClient) ResolveName(ctx context.Context, name string) (Resolution, error) {
	if r.cache != nil {
		if res, found, err := r.cache.GetResolution(ctx, name); err == nil && found {
			return res, nil
		}
	}

	result, err := r.rxnormBreaker.Execute(func() (interface{}, error) {
		return r.rxnorm.ResolveName(ctx, name)
	})
	if err != nil {
		return Resolution{}, fmt.Errorf("rxnorm resolution: %w", err)
	}
	res := result.(Resolution)

	if r.cache != nil {
		if err := r.cache.SetResolution(ctx, name, res); err != nil {
			r.logger.WithError(err).Debug("Failed to cache name resolution")
		}
	}
	return res, nil
}

// InteractionsForRxCUIs fetches interaction data through the cache and breaker.
func (r *ResilientClient) InteractionsForRxCUIs(ctx context.Context, rxcuis []string) ([]domain.InteractionRecord, error) {
	if r.cache != nil {
		if records, found, err := r.cache.GetInteractions(ctx, rxcuis); err == nil && found {
			return records, nil
		}
	}

	result, err := r.rxnormBreaker.Execute(func() (interface{}, error) {
		return r.rxnorm.InteractionsForRxCUIs(ctx, rxcuis)
	})
	if err != nil {
		return nil, fmt.Errorf("rxnorm interactions: %w", err)
	}
	records := result.([]domain.InteractionRecord)

	if r.cache != nil {
		if err := r.cache.SetInteractions(ctx, rxcuis, records); err != nil {
			r.logger.WithError(err).Debug("Failed to cache interaction set")
		}
	}
	return records, nil
}

// InferInteractions infers label-based interaction evidence through the
// cache and breaker.
func (r *ResilientClient) InferInteractions(ctx context.Context, names []string) ([]domain.InteractionRecord, error) {
	if r.cache != nil {
		if records, found, err := r.cache.GetLabelInference(ctx, names); err == nil && found {
			return records, nil
		}
	}

	result, err := r.openFDABreaker.Execute(func() (interface{}, error) {
		return r.openFDA.InferInteractions(ctx, names)
	})
	if err != nil {
		return nil, fmt.Errorf("openfda label inference: %w", err)
	}
	records := result.([]domain.InteractionRecord)

	if r.cache != nil {
		if err := r.cache.SetLabelInference(ctx, names, records); err != nil {
			r.logger.WithError(err).Debug("Failed to cache label inference")
		}
	}
	return records, nil
}
