// Package fleet implements the vehicle flows that invalidate schedule
// assignments: breakdowns, repairs and sales between users. Affected pools
// are re-resolved through an auction.Cascade once the fleet change has been
// committed.
package fleet

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/lineauction/core/auction"
	"github.com/kilianp07/lineauction/core/events"
	"github.com/kilianp07/lineauction/core/failure"
	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

// TransferRequest sells Plate from Seller to Buyer for Price, moving the
// vehicle to the buyer's garage GarageID.
type TransferRequest struct {
	Plate    string `json:"plate" validate:"required"`
	Seller   string `json:"seller" validate:"required"`
	Buyer    string `json:"buyer" validate:"required,nefield=Seller"`
	GarageID int64  `json:"garage_id" validate:"gt=0"`
	Price    int64  `json:"price" validate:"gte=0"`
}

type Service struct {
	store    store.Store
	cascade  *auction.Cascade
	validate *validator.Validate
	log      logger.Logger
}

func New(st store.Store, c *auction.Cascade, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop{}
	}
	return &Service{store: st, cascade: c, validate: failure.NewValidator(), log: log}
}

// ReportBreakdown sends a vehicle to maintenance, drops every assignment it
// holds and demotes the active schedules it served.
func (s *Service) ReportBreakdown(ctx context.Context, plate string) (auction.CascadeReport, error) {
	const op = "fleet.breakdown"
	var batch *auction.Batch
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		v, err := vehicle(ctx, tx, op, plate)
		if err != nil {
			return err
		}
		if batch, err = invalidate(ctx, tx, plate, events.ReasonBreakdown, true); err != nil {
			return err
		}
		v.Status = model.VehicleMaintenance
		v.Line = ""
		return tx.UpsertVehicle(ctx, v)
	})
	if err != nil {
		return auction.CascadeReport{}, failure.Wrap(op, err)
	}
	s.log.Infof("vehicle %s broke down, %d pool(s) invalidated", plate, batch.Len())
	return s.cascade.Flush(ctx, batch), nil
}

// Repair returns a vehicle in maintenance to its garage.
func (s *Service) Repair(ctx context.Context, plate string) error {
	const op = "fleet.repair"
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		v, err := vehicle(ctx, tx, op, plate)
		if err != nil {
			return err
		}
		if v.Status != model.VehicleMaintenance {
			return failure.Conflict(op, "vehicle %s is not in maintenance", plate)
		}
		v.Status = model.VehicleReady
		return tx.UpsertVehicle(ctx, v)
	})
	return failure.Wrap(op, err)
}

// Transfer sells a vehicle. Its assignments are dropped and it arrives in
// the buyer's garage ready and off line.
func (s *Service) Transfer(ctx context.Context, req TransferRequest) (auction.CascadeReport, error) {
	const op = "fleet.transfer"
	var res failure.ValidationResult
	res.Collect(s.validate.Struct(req))
	if err := res.Err(op); err != nil {
		return auction.CascadeReport{}, err
	}

	var batch *auction.Batch
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		v, err := vehicle(ctx, tx, op, req.Plate)
		if err != nil {
			return err
		}
		if v.Owner != req.Seller {
			return failure.Forbidden(op, "vehicle %s is not owned by %s", req.Plate, req.Seller)
		}
		buyer, err := tx.Account(ctx, req.Buyer)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound(op, "account %s not found", req.Buyer)
		}
		if err != nil {
			return err
		}
		if buyer.Balance < req.Price {
			return failure.Conflict(op, "insufficient balance: %d < %d", buyer.Balance, req.Price)
		}
		if _, err := tx.Account(ctx, req.Seller); errors.Is(err, store.ErrNotFound) {
			return failure.NotFound(op, "account %s not found", req.Seller)
		} else if err != nil {
			return err
		}

		if batch, err = invalidate(ctx, tx, req.Plate, events.ReasonTransfer, false); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, req.Buyer, -req.Price); err != nil {
			return err
		}
		if err := tx.AdjustBalance(ctx, req.Seller, req.Price); err != nil {
			return err
		}
		v.Owner = req.Buyer
		v.GarageID = req.GarageID
		v.Status = model.VehicleReady
		v.Line = ""
		return tx.UpsertVehicle(ctx, v)
	})
	if err != nil {
		return auction.CascadeReport{}, failure.Wrap(op, err)
	}
	s.log.Infof("vehicle %s sold by %s to %s for %d", req.Plate, req.Seller, req.Buyer, req.Price)
	return s.cascade.Flush(ctx, batch), nil
}

func vehicle(ctx context.Context, tx store.Tx, op, plate string) (model.Vehicle, error) {
	v, err := tx.Vehicle(ctx, plate)
	if errors.Is(err, store.ErrNotFound) {
		return v, failure.NotFound(op, "vehicle %s not found", plate)
	}
	return v, err
}

// invalidate drops the assignments of plate and returns the pools they
// belonged to. With demote set, affected active schedules become pending.
func invalidate(ctx context.Context, tx store.Tx, plate, reason string, demote bool) (*auction.Batch, error) {
	ids, err := tx.DeleteAssignmentsForVehicle(ctx, plate)
	if err != nil {
		return nil, err
	}
	b := &auction.Batch{}
	for _, id := range ids {
		sch, err := tx.Schedule(ctx, id)
		if err != nil {
			return nil, err
		}
		if demote && sch.Status == model.StatusActive {
			if err := tx.SetScheduleStatus(ctx, id, model.StatusPending); err != nil {
				return nil, err
			}
		}
		b.Add(events.AssignmentsInvalidated{Line: sch.LineName, Frame: sch.Frame, Plate: plate, Reason: reason})
	}
	return b, nil
}
