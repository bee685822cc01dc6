package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/lineauction/core/auction"
	"github.com/kilianp07/lineauction/core/bidcap"
	"github.com/kilianp07/lineauction/core/duty"
	"github.com/kilianp07/lineauction/core/failure"
	"github.com/kilianp07/lineauction/core/logger"
	"github.com/kilianp07/lineauction/core/model"
	"github.com/kilianp07/lineauction/core/store"
)

// CreateRequest holds the user supplied fields of a new schedule.
type CreateRequest struct {
	LineName  string      `json:"line_name" yaml:"line_name" validate:"required"`
	Frame     model.Frame `json:"frame" yaml:"frame" validate:"required"`
	Frequency int         `json:"frequency" yaml:"frequency" validate:"gt=0"`
	BidPrice  int64       `json:"bid_price" yaml:"bid_price" validate:"gte=0"`
}

type frequencyRequest struct {
	Frequency int `json:"frequency" validate:"gt=0"`
}

// Service runs schedule operations against a store and resolves the
// affected pools.
type Service struct {
	store    store.Store
	resolver auction.PoolResolver
	caps     bidcap.Calculator
	planner  duty.Planner
	frames   model.FrameTable
	validate *validator.Validate
	log      logger.Logger
	capsSet  bool
}

// Option configures a Service.
type Option func(*Service)

// WithFrames sets the frame table. Defaults to model.DefaultFrames.
func WithFrames(t model.FrameTable) Option { return func(s *Service) { s.frames = t } }

// WithCaps sets the bid cap calculator.
func WithCaps(c bidcap.Calculator) Option {
	return func(s *Service) { s.caps, s.capsSet = c, true }
}

// WithPlanner sets the duty planner.
func WithPlanner(p duty.Planner) Option { return func(s *Service) { s.planner = p } }

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(s *Service) { s.log = l } }

// New returns a Service. Unset caps are derived from the frame table.
func New(st store.Store, r auction.PoolResolver, opts ...Option) *Service {
	s := &Service{
		store:    st,
		resolver: r,
		planner:  duty.NewPlanner(duty.DefaultRules()),
		frames:   model.DefaultFrames(),
		validate: failure.NewValidator(),
		log:      logger.Nop{},
	}
	for _, o := range opts {
		o(s)
	}
	if !s.capsSet {
		s.caps = bidcap.New(bidcap.DefaultParams(), s.frames)
	}
	return s
}

func (s *Service) resolve(ctx context.Context, trigger string, k model.PoolKey) error {
	_, _, err := s.resolver.Resolve(auction.WithTrigger(ctx, trigger), k.Line, k.Frame)
	return err
}

// Create validates req and stores a pending schedule owned by owner, then
// resolves its pool. The line's provider garage is copied onto the
// schedule and the frame bounds become its start and end.
func (s *Service) Create(ctx context.Context, owner string, req CreateRequest) (model.Schedule, error) {
	const op = "schedule.create"
	var res failure.ValidationResult
	if owner == "" {
		res.Add("owner", "is required")
	}
	res.Collect(s.validate.Struct(req))
	spec, known := s.frames.Lookup(req.Frame)
	if req.Frame != "" && !known {
		res.Add("frame", fmt.Sprintf("unknown frame %q", req.Frame))
	}
	if req.Frequency > 0 && known {
		if c := s.caps.Cap(req.Frequency, req.Frame); float64(req.BidPrice) > c {
			res.Add("bid_price", fmt.Sprintf("exceeds cap %.2f for frequency %d", c, req.Frequency))
		}
	}
	if err := res.Err(op); err != nil {
		return model.Schedule{}, err
	}

	sch := model.Schedule{
		Owner:     owner,
		LineName:  req.LineName,
		Frame:     req.Frame,
		Start:     spec.Start,
		End:       spec.End,
		Frequency: req.Frequency,
		BidPrice:  req.BidPrice,
		Status:    model.StatusPending,
	}
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		l, err := tx.Line(ctx, req.LineName)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound(op, "line %q not found", req.LineName)
		}
		if err != nil {
			return err
		}
		sch.GarageID = l.ProviderGarageID
		sch.ID, err = tx.InsertSchedule(ctx, sch)
		return err
	})
	if err != nil {
		return model.Schedule{}, failure.Wrap(op, err)
	}
	s.log.Infof("schedule %d created by %s on %s", sch.ID, owner, sch.Pool())

	if err := s.resolve(ctx, auction.TriggerCreate, sch.Pool()); err != nil {
		return sch, failure.Wrap(op, err)
	}
	return s.Get(ctx, sch.ID)
}

// Get returns one schedule.
func (s *Service) Get(ctx context.Context, id int64) (model.Schedule, error) {
	const op = "schedule.get"
	var sch model.Schedule
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		sch, err = tx.Schedule(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound(op, "schedule %d not found", id)
		}
		return err
	})
	return sch, failure.Wrap(op, err)
}

// UpdateFrequency changes the headway of a schedule. The existing bid must
// stay within the cap at the new frequency.
func (s *Service) UpdateFrequency(ctx context.Context, id int64, frequency int) (model.Schedule, error) {
	const op = "schedule.update_frequency"
	var res failure.ValidationResult
	res.Collect(s.validate.Struct(frequencyRequest{Frequency: frequency}))
	if err := res.Err(op); err != nil {
		return model.Schedule{}, err
	}

	var sch model.Schedule
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		sch, err = tx.Schedule(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return failure.NotFound(op, "schedule %d not found", id)
		}
		if err != nil {
			return err
		}
		if c := s.caps.Cap(frequency, sch.Frame); float64(sch.BidPrice) > c {
			return failure.Validation(op, failure.FieldError{
				Field:  "frequency",
				Reason: fmt.Sprintf("current bid %d exceeds cap %.2f for frequency %d", sch.BidPrice, c, frequency),
			})
		}
		sch.Frequency = frequency
		return tx.UpdateScheduleFrequency(ctx, id, frequency)
	})
	if err != nil {
		return model.Schedule{}, failure.Wrap(op, err)
	}

	if err := s.resolve(ctx, auction.TriggerFrequency, sch.Pool()); err != nil {
		return sch, failure.Wrap(op, err)
	}
	return s.Get(ctx, id)
}

// Delete removes a schedule and its assignments and returns the assigned
// vehicles to their garage. Deleting an unknown id succeeds. An empty owner
// skips the ownership check.
func (s *Service) Delete(ctx context.Context, id int64, owner string) error {
	const op = "schedule.delete"
	var (
		sch   model.Schedule
		found bool
	)
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		sch, err = tx.Schedule(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if owner != "" && sch.Owner != owner {
			return failure.Forbidden(op, "schedule %d is not owned by %s", id, owner)
		}
		found = true
		as, err := tx.Assignments(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range as {
			if err := release(ctx, tx, a.Plate); err != nil {
				return err
			}
		}
		return tx.DeleteSchedule(ctx, id)
	})
	if err != nil {
		return failure.Wrap(op, err)
	}
	if !found {
		return nil
	}
	s.log.Infof("schedule %d deleted from %s", id, sch.Pool())
	return failure.Wrap(op, s.resolve(ctx, auction.TriggerDelete, sch.Pool()))
}

// release puts a vehicle back in its garage. Unknown plates are ignored.
func release(ctx context.Context, tx store.Tx, plate string) error {
	v, err := tx.Vehicle(ctx, plate)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	v.Status = model.VehicleReady
	v.Line = ""
	return tx.UpsertVehicle(ctx, v)
}

// PlanDuties derives the duty plan of a schedule and overlays the plates of
// its saved assignments.
func (s *Service) PlanDuties(ctx context.Context, id int64) (duty.Plan, error) {
	const op = "schedule.plan_duties"
	var (
		sch model.Schedule
		l   model.Line
		as  []model.Assignment
	)
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		if sch, l, err = s.scheduleWithLine(ctx, tx, op, id); err != nil {
			return err
		}
		as, err = tx.Assignments(ctx, id)
		return err
	})
	if err != nil {
		return duty.Plan{}, failure.Wrap(op, err)
	}
	plan, err := s.planner.PlanSchedule(sch, l)
	if err != nil {
		return duty.Plan{}, failure.Internal(op, err)
	}
	if len(plan.Duties) == 0 {
		return duty.Plan{}, failure.Internal(op, fmt.Errorf("schedule %d yields no duties", id))
	}
	return duty.Overlay(plan, as), nil
}

func (s *Service) scheduleWithLine(ctx context.Context, tx store.Tx, op string, id int64) (model.Schedule, model.Line, error) {
	sch, err := tx.Schedule(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return sch, model.Line{}, failure.NotFound(op, "schedule %d not found", id)
	}
	if err != nil {
		return sch, model.Line{}, err
	}
	l, err := tx.Line(ctx, sch.LineName)
	if errors.Is(err, store.ErrNotFound) {
		return sch, l, failure.NotFound(op, "line %q not found", sch.LineName)
	}
	return sch, l, err
}

// SaveManualAssignments replaces the block to plate mapping of a schedule.
// Empty plates are skipped. Every check runs before the first write and the
// whole save is one transaction.
func (s *Service) SaveManualAssignments(ctx context.Context, id int64, owner string, blocks map[int]string) error {
	const op = "schedule.save_assignments"
	if owner == "" {
		var res failure.ValidationResult
		res.Add("owner", "is required")
		return res.Err(op)
	}
	var sch model.Schedule
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var (
			l   model.Line
			err error
		)
		if sch, l, err = s.scheduleWithLine(ctx, tx, op, id); err != nil {
			return err
		}
		if sch.Owner != owner {
			return failure.Forbidden(op, "schedule %d is not owned by %s", id, owner)
		}

		as := sortedAssignments(id, blocks)
		seen := make(map[string]bool, len(as))
		for _, a := range as {
			if seen[a.Plate] {
				return failure.Conflict(op, "vehicle %s is assigned to more than one block", a.Plate)
			}
			seen[a.Plate] = true
		}

		plan, err := s.planner.PlanSchedule(sch, l)
		if err != nil {
			return err
		}
		var res failure.ValidationResult
		for _, a := range as {
			if a.Block < 0 || a.Block >= len(plan.Duties) {
				res.Add(fmt.Sprintf("blocks[%d]", a.Block), fmt.Sprintf("out of range [0, %d)", len(plan.Duties)))
			}
		}
		if err := res.Err(op); err != nil {
			return err
		}

		prev, err := tx.Assignments(ctx, id)
		if err != nil {
			return err
		}
		held := make(map[string]bool, len(prev))
		for _, a := range prev {
			held[a.Plate] = true
		}
		vehicles := make([]model.Vehicle, 0, len(as))
		for _, a := range as {
			v, err := tx.Vehicle(ctx, a.Plate)
			if errors.Is(err, store.ErrNotFound) || (err == nil && v.Owner != sch.Owner) {
				return failure.NotFound(op, "vehicle %s not found", a.Plate)
			}
			if err != nil {
				return err
			}
			if v.GarageID != sch.GarageID {
				return failure.Conflict(op, "vehicle %s is not in garage %d", a.Plate, sch.GarageID)
			}
			if !held[a.Plate] && !v.Assignable() {
				return failure.Conflict(op, "vehicle %s is not available (status %s)", a.Plate, v.Status)
			}
			vehicles = append(vehicles, v)
		}

		if err := tx.ReplaceAssignments(ctx, id, as); err != nil {
			return err
		}
		for _, v := range vehicles {
			v.Status = model.VehicleInService
			v.Line = sch.LineName
			if err := tx.UpsertVehicle(ctx, v); err != nil {
				return err
			}
			delete(held, v.Plate)
		}
		for _, a := range prev {
			if held[a.Plate] {
				if err := release(ctx, tx, a.Plate); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return failure.Wrap(op, err)
	}
	s.log.Debugw("assignments saved", map[string]any{"schedule": id, "blocks": len(blocks)})
	return failure.Wrap(op, s.resolve(ctx, auction.TriggerAssignment, sch.Pool()))
}

func sortedAssignments(id int64, blocks map[int]string) []model.Assignment {
	as := make([]model.Assignment, 0, len(blocks))
	for b, plate := range blocks {
		if plate == "" {
			continue
		}
		as = append(as, model.Assignment{ScheduleID: id, Block: b, Plate: plate})
	}
	sort.Slice(as, func(i, j int) bool { return as[i].Block < as[j].Block })
	return as
}

// ListForOwner returns the schedules of owner ordered by start time.
func (s *Service) ListForOwner(ctx context.Context, owner string) ([]model.Schedule, error) {
	return s.list(ctx, "schedule.list_owner", func(tx store.Tx) ([]model.Schedule, error) {
		return tx.SchedulesForOwner(ctx, owner)
	})
}

// ListForLine returns the schedules bidding on line ordered by start time.
func (s *Service) ListForLine(ctx context.Context, line string) ([]model.Schedule, error) {
	return s.list(ctx, "schedule.list_line", func(tx store.Tx) ([]model.Schedule, error) {
		return tx.SchedulesForLine(ctx, line)
	})
}

// Winners returns every active schedule in frame order.
func (s *Service) Winners(ctx context.Context) ([]model.Schedule, error) {
	return s.list(ctx, "schedule.winners", func(tx store.Tx) ([]model.Schedule, error) {
		var out []model.Schedule
		for _, f := range s.frames.Specs() {
			active, err := tx.ActiveSchedules(ctx, f.Name)
			if err != nil {
				return nil, err
			}
			out = append(out, active...)
		}
		return out, nil
	})
}

func (s *Service) list(ctx context.Context, op string, fn func(store.Tx) ([]model.Schedule, error)) ([]model.Schedule, error) {
	var out []model.Schedule
	err := s.store.Tx(ctx, func(tx store.Tx) error {
		var err error
		out, err = fn(tx)
		return err
	})
	if err != nil {
		return nil, failure.Wrap(op, err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}
