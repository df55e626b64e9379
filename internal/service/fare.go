package service

import (
	"context"

	"hail/internal/domain"
	"hail/internal/geo"
)

// FareEstimate is the result of a fare quote.
type FareEstimate struct {
	Fare       float64
	DistanceKm float64
}

// FareEstimator quotes a fare for a trip. External collaborator; the default
// implementation below is a straight-line rate card, not a routing engine.
type FareEstimator interface {
	Estimate(ctx context.Context, pickup, destination geo.Point, class domain.VehicleClass) (FareEstimate, error)
}

// rateCard holds per-class pricing.
type rateCard struct {
	BaseFare    float64
	PerKm       float64
	MinimumFare float64
}

var rateCards = map[domain.VehicleClass]rateCard{
	domain.VehicleClassAuto: {BaseFare: 30, PerKm: 10, MinimumFare: 40},
	domain.VehicleClassCar:  {BaseFare: 50, PerKm: 15, MinimumFare: 80},
	domain.VehicleClassMoto: {BaseFare: 20, PerKm: 8, MinimumFare: 25},
}

// RateCardEstimator estimates fares from great-circle distance and a
// per-class rate card.
type RateCardEstimator struct{}

// NewRateCardEstimator creates a RateCardEstimator.
func NewRateCardEstimator() *RateCardEstimator {
	return &RateCardEstimator{}
}

var _ FareEstimator = (*RateCardEstimator)(nil)

// Estimate quotes base fare plus per-km rate over the haversine distance,
// floored at the class minimum.
func (e *RateCardEstimator) Estimate(ctx context.Context, pickup, destination geo.Point, class domain.VehicleClass) (FareEstimate, error) {
	card, ok := rateCards[class]
	if !ok {
		return FareEstimate{}, ErrInvalidVehicleClass
	}

	distance := geo.Haversine(pickup, destination)
	fare := card.BaseFare + distance*card.PerKm
	if fare < card.MinimumFare {
		fare = card.MinimumFare
	}

	return FareEstimate{Fare: fare, DistanceKm: distance}, nil
}
