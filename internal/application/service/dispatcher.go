package service

import (
	"context"
	"fmt"

	"browser-pilot/internal/application/port/output"
	"browser-pilot/internal/domain/entity"
)

// Dispatcher executes one decision's chosen action against the browser.
type Dispatcher struct {
	registry *ActionRegistry
	logger   output.LoggerPort
}

func NewDispatcher(registry *ActionRegistry, logger output.LoggerPort) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger,
	}
}

// Dispatch looks up the call's variant and invokes its handler. An
// unregistered name yields *entity.UnknownActionError. A handler panic is
// recovered into an error; a handler error is returned as-is so the loop can
// treat the step as failed. A handler-set result error passes through.
func (d *Dispatcher) Dispatch(ctx context.Context, call entity.ActionCall, browser output.BrowserPort) (result entity.ActionResult, err error) {
	spec, ok := d.registry.Get(call.Name)
	if !ok {
		return entity.ActionResult{}, &entity.UnknownActionError{Name: call.Name}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = entity.ActionResult{}
			err = fmt.Errorf("action %q panicked: %v", call.Name, rec)
		}
	}()

	d.logger.Info("Executing action", "name", call.Name, "params", string(call.Params))

	result, err = spec.Handler(ctx, call.Params, browser)
	if err != nil {
		return entity.ActionResult{}, fmt.Errorf("action %q: %w", call.Name, err)
	}
	return result, nil
}
