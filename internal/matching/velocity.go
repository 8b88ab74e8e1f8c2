package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

// ContactVelocityChecker is the defense-in-depth abuse guard in front of the
// authoritative database count: a redis counter per patient over the contact
// window. It fails open when redis is unavailable; the pure predicate over
// the store count remains the correctness boundary.
type ContactVelocityChecker struct {
	redis  *redis.Client
	logger *logging.Logger
	config VelocityConfig
}

// VelocityConfig contains contact velocity limits.
type VelocityConfig struct {
	MaxContacts int
	WindowHours int
	Enabled     bool
}

// DefaultVelocityConfig mirrors the documented contact cap.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		MaxContacts: ContactLimitPerDay,
		WindowHours: 24,
		Enabled:     true,
	}
}

// VelocityResult contains the result of a velocity check.
type VelocityResult struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

// NewContactVelocityChecker creates a velocity checker.
func NewContactVelocityChecker(redisClient *redis.Client, config VelocityConfig, logger *logging.Logger) *ContactVelocityChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &ContactVelocityChecker{
		redis:  redisClient,
		logger: logger,
		config: config,
	}
}

// Check increments the patient's contact counter and reports whether the
// attempt is within the window limit.
func (v *ContactVelocityChecker) Check(ctx context.Context, patientID string) *VelocityResult {
	ctx, span := matchTracer.Start(ctx, "velocity.check_contact")
	defer span.End()
	span.SetAttributes(
		attribute.String("praxisfinder.patient_id", patientID),
		attribute.String("velocity.check_type", "contact"),
	)

	if !v.config.Enabled || v.redis == nil {
		return &VelocityResult{Allowed: true, MaxAllowed: v.config.MaxContacts}
	}

	key := fmt.Sprintf("velocity:contact:%s", patientID)
	window := time.Duration(v.config.WindowHours) * time.Hour

	count, expiry, err := v.incrementAndGet(ctx, key, window)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		// Fail open - the database count still enforces the cap
		return &VelocityResult{Allowed: true, MaxAllowed: v.config.MaxContacts, Message: "velocity check unavailable"}
	}

	result := &VelocityResult{
		Allowed:      count <= v.config.MaxContacts,
		CurrentCount: count,
		MaxAllowed:   v.config.MaxContacts,
		WindowExpiry: expiry,
	}

	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d contact attempts in %d hours", v.config.MaxContacts, v.config.WindowHours)
		v.logger.Warn("contact velocity exceeded",
			"patient_id", patientID,
			"count", count,
			"max", v.config.MaxContacts,
		)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}

	return result
}

// incrementAndGet increments a counter and returns the new value with expiry time.
func (v *ContactVelocityChecker) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	// Set expiry only on first increment
	if count == 1 {
		v.redis.Expire(ctx, key, window)
	}

	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil {
		ttl = window
	}

	return int(count), time.Now().Add(ttl), nil
}

// Reset clears the contact counter for a patient (admin use).
func (v *ContactVelocityChecker) Reset(ctx context.Context, patientID string) error {
	if v.redis == nil {
		return nil
	}
	key := fmt.Sprintf("velocity:contact:%s", patientID)
	return v.redis.Del(ctx, key).Err()
}
