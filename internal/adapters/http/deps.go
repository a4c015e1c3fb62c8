package http

import (
	"github.com/nats-io/nats.go"

	"github.com/mbeltza/tripscribe/internal/adapters/device"
	"github.com/mbeltza/tripscribe/internal/adapters/postgres"
	"github.com/mbeltza/tripscribe/internal/adapters/valkey"
	"github.com/mbeltza/tripscribe/internal/core/ports"
	"github.com/mbeltza/tripscribe/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Tracker  *usecases.Tracker
	Curation *usecases.CurationService
	Trips    ports.TripRepository
	Fixes    ports.FixRepository
	Dwells   ports.DwellRepository
	Device   *device.Source
	NATS     *nats.Conn
	DB       *postgres.DB
	Cache    *valkey.Cache
}
