package auction

import "context"

// Triggers recorded with each resolution.
const (
	TriggerCreate     = "create"
	TriggerFrequency  = "update_frequency"
	TriggerDelete     = "delete"
	TriggerAssignment = "manual_assignment"
	TriggerBreakdown  = "breakdown"
	TriggerTransfer   = "transfer"
	TriggerManual     = "manual"
)

type triggerKey struct{}

// WithTrigger annotates ctx with the operation causing a resolution.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

// TriggerFrom returns the trigger stored in ctx, TriggerManual if none.
func TriggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return TriggerManual
}
