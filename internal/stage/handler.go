package stage

import (
	"context"

	"argus/internal/records"
)

// Handler describes the contract the worker needs from the analysis stage.
type Handler interface {
	Prepare(context.Context, *records.Record) error
	Execute(context.Context, *records.Record) error
	HealthCheck(context.Context) Health
}
