package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prohmpiriya/shelf-booking/internal/cache"
	"github.com/prohmpiriya/shelf-booking/internal/domain"
	"github.com/prohmpiriya/shelf-booking/pkg/logger"
)

var allRoles = []domain.Role{domain.RoleSupplier, domain.RoleCategoryManager, domain.RoleDMPManager}

// categoryScope returns the category the actor is confined to, or "" for none.
// A category manager without a category may not read anything.
func categoryScope(actor *domain.Actor) (string, error) {
	if actor.Role != domain.RoleCategoryManager {
		return "", nil
	}
	if actor.Category == "" {
		return "", fmt.Errorf("%w: category manager has no category", domain.ErrForbidden)
	}
	return actor.Category, nil
}

func validateID(id string, errInvalid error) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", errInvalid, id)
	}
	return nil
}

func validateIDs(ids []string, errInvalid error) error {
	for _, id := range ids {
		if err := validateID(id, errInvalid); err != nil {
			return err
		}
	}
	return nil
}

// cacheBumper invalidates the zone-list namespace after a committed zone mutation.
// Failures are logged and never returned.
type cacheBumper struct {
	cache cache.ZoneListCache
	log   *logger.Logger
}

func newCacheBumper(c cache.ZoneListCache) cacheBumper {
	if c == nil {
		c = cache.NoopZoneListCache{}
	}
	return cacheBumper{cache: c, log: logger.Get()}
}

func (b cacheBumper) bump(ctx context.Context, reason string) {
	if _, err := b.cache.Invalidate(ctx); err != nil {
		b.log.WarnContext(ctx, "zone cache invalidation failed",
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case domain.IsNotFoundError(err):
		return "not_found"
	case domain.IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}

func outboxMessage(aggregateType, aggregateID string, eventType domain.EventType, payload interface{}, now time.Time) (*domain.OutboxMessage, error) {
	msg, err := domain.NewOutboxMessage(aggregateType, aggregateID, eventType, payload, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s event: %w", eventType, err)
	}
	return msg, nil
}
