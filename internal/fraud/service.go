package fraud

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/internal/behavior"
	"github.com/trackforce/fieldguard/internal/device"
	"github.com/trackforce/fieldguard/internal/sensors"
	"github.com/trackforce/fieldguard/pkg/alerthub"
	"github.com/trackforce/fieldguard/pkg/storage"
)

const degradedReason = "fraud detection system error - manual review recommended"

// Config holds the scorer thresholds
type Config struct {
	AuditCapacity         int
	RapidActivityLimit    int
	RapidActivityWindow   time.Duration
	SimilarActivityLimit  int
	SimilarActivityWindow time.Duration
}

// DefaultConfig returns the production thresholds
func DefaultConfig() Config {
	return Config{
		AuditCapacity:         1000,
		RapidActivityLimit:    10,
		RapidActivityWindow:   60 * time.Minute,
		SimilarActivityLimit:  5,
		SimilarActivityWindow: 30 * time.Minute,
	}
}

// activityRecord is one remembered activity for volume/similarity checks
type activityRecord struct {
	activityType ActivityType
	digest       string
	timestamp    time.Time
}

// Service is the state-free orchestrator invoked once per activity event.
// It is synchronous and re-entrant; only the audit log serializes writes.
type Service struct {
	behavior  *behavior.Store
	collector *device.Collector
	monitor   *sensors.Monitor
	store     storage.Store
	notifier  alerthub.Notifier
	cfg       Config
	log       *zap.Logger

	detectors []detector

	mu         sync.Mutex
	activities map[string][]activityRecord
	audit      []CheckResult
}

// NewService creates the scorer. notifier may be nil.
func NewService(
	behaviorStore *behavior.Store,
	collector *device.Collector,
	monitor *sensors.Monitor,
	store storage.Store,
	notifier alerthub.Notifier,
	cfg Config,
	log *zap.Logger,
) *Service {
	if cfg.AuditCapacity <= 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		behavior:   behaviorStore,
		collector:  collector,
		monitor:    monitor,
		store:      store,
		notifier:   notifier,
		cfg:        cfg,
		log:        log,
		detectors:  []detector{detectLocation, detectTime, detectDevice, detectBehavior, detectPattern},
		activities: make(map[string][]activityRecord),
	}
}

// CheckFraud evaluates one activity event. It never fails the caller: any
// internal fault degrades to a Low-risk, zero-flag result so the engine has
// no opinion rather than blocking the business action.
func (s *Service) CheckFraud(ctx context.Context, in CheckInput) (result *CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("fraud check panicked, degrading to no-opinion result",
				zap.String("agent_id", in.AgentID),
				zap.Any("panic", r))
			degradedChecksTotal.Inc()
			result = s.degradedResult(in)
			s.appendAudit(context.Background(), *result)
		}
	}()

	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now()
	}

	env := s.buildEnv(ctx, in)

	var flags []Flag
	for _, detect := range s.detectors {
		flags = append(flags, detect(in, env)...)
	}

	score := Score(flags)
	level := LevelForScore(score)

	result = &CheckResult{
		ID:              uuid.New(),
		AgentID:         in.AgentID,
		ActivityType:    in.ActivityType,
		RiskLevel:       level,
		RiskScore:       score,
		Flags:           flags,
		Reason:          buildReason(flags),
		Recommendations: buildRecommendations(level, flags),
		AutoActions:     buildAutoActions(level),
		CheckedAt:       time.Now(),
	}

	checksTotal.WithLabelValues(string(in.ActivityType), string(level)).Inc()
	for _, f := range flags {
		flagsTotal.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
	}

	s.notifyDeviceFindings(flags)
	s.appendAudit(ctx, *result)

	s.log.Info("fraud check completed",
		zap.String("agent_id", in.AgentID),
		zap.String("activity_type", string(in.ActivityType)),
		zap.Float64("risk_score", score),
		zap.String("risk_level", string(level)),
		zap.Int("flags", len(flags)))

	return result
}

// AuditLog returns a copy of the bounded audit log, oldest first
func (s *Service) AuditLog() []CheckResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CheckResult, len(s.audit))
	copy(out, s.audit)
	return out
}

func (s *Service) buildEnv(ctx context.Context, in CheckInput) *checkEnv {
	env := &checkEnv{
		rapidWindow:  s.cfg.RapidActivityWindow,
		similar:      s.cfg.SimilarActivityWindow,
		rapidLimit:   s.cfg.RapidActivityLimit,
		similarLimit: s.cfg.SimilarActivityLimit,
	}

	// A failed baseline load reduces evidence quality; it never halts the check
	pattern, err := s.behavior.Load(ctx, in.AgentID)
	if err != nil {
		s.log.Warn("behavior baseline unavailable for check",
			zap.String("agent_id", in.AgentID), zap.Error(err))
	}
	env.pattern = pattern

	if s.monitor != nil {
		env.movement = s.monitor.RecentMovement(0)
	}
	if s.collector != nil {
		env.fingerprint = s.collector.Current()
		env.lastKnown = s.collector.Last()
	}

	env.rapidCount, env.similarCount = s.recordActivity(in)
	return env
}

// recordActivity counts prior activities inside the detection windows, then
// remembers the current one. Counts include the activity under evaluation.
func (s *Service) recordActivity(in CheckInput) (rapid, similar int) {
	digest := metadataDigest(in.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make([]activityRecord, 0, len(s.activities[in.AgentID]))
	for _, rec := range s.activities[in.AgentID] {
		age := in.Timestamp.Sub(rec.timestamp)
		if age > s.cfg.RapidActivityWindow && age > s.cfg.SimilarActivityWindow {
			continue
		}
		keep = append(keep, rec)

		if age <= s.cfg.RapidActivityWindow {
			rapid++
		}
		if age <= s.cfg.SimilarActivityWindow &&
			rec.activityType == in.ActivityType && rec.digest == digest {
			similar++
		}
	}

	keep = append(keep, activityRecord{
		activityType: in.ActivityType,
		digest:       digest,
		timestamp:    in.Timestamp,
	})
	s.activities[in.AgentID] = keep

	return rapid + 1, similar + 1
}

func (s *Service) notifyDeviceFindings(flags []Flag) {
	if s.notifier == nil {
		return
	}
	for _, f := range flags {
		if f.Type != FlagDevice {
			continue
		}
		if f.Severity != SeverityHigh && f.Severity != SeverityCritical {
			continue
		}
		s.notifier.Notify(alerthub.Alert{
			Title:       "Device integrity alert",
			Description: f.Description,
			Severity:    string(f.Severity),
			Timestamp:   time.Now(),
		})
	}
}

func (s *Service) appendAudit(ctx context.Context, result CheckResult) {
	s.mu.Lock()
	s.audit = append(s.audit, result)
	if overflow := len(s.audit) - s.cfg.AuditCapacity; overflow > 0 {
		s.audit = s.audit[overflow:]
	}
	snapshot := make([]CheckResult, len(s.audit))
	copy(snapshot, s.audit)
	s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, storage.KeyFraudLogs, data); err != nil {
		s.log.Warn("failed to persist fraud logs, continuing in-memory", zap.Error(err))
	}
}

func (s *Service) degradedResult(in CheckInput) *CheckResult {
	return &CheckResult{
		ID:              uuid.New(),
		AgentID:         in.AgentID,
		ActivityType:    in.ActivityType,
		RiskLevel:       RiskLow,
		RiskScore:       0,
		Flags:           []Flag{},
		Reason:          degradedReason,
		Recommendations: []string{"Manual review recommended"},
		AutoActions:     []string{"log_incident"},
		CheckedAt:       time.Now(),
	}
}

func buildReason(flags []Flag) string {
	var criticals, highs []string
	for _, f := range flags {
		switch f.Severity {
		case SeverityCritical:
			criticals = append(criticals, f.Description)
		case SeverityHigh:
			highs = append(highs, f.Description)
		}
	}

	switch {
	case len(criticals) > 0:
		return joinDescriptions(criticals)
	case len(highs) > 0:
		return joinDescriptions(highs)
	case len(flags) > 0:
		return fmt.Sprintf("%d potential fraud indicators detected", len(flags))
	default:
		return "No fraud indicators detected"
	}
}

func joinDescriptions(descriptions []string) string {
	out := descriptions[0]
	for _, d := range descriptions[1:] {
		out += "; " + d
	}
	return out
}

var flagRecommendations = map[FlagType]string{
	FlagLocation: "Verify agent location through a call or site photo",
	FlagTime:     "Confirm the activity was scheduled outside normal hours",
	FlagDevice:   "Re-register the device and verify agent identity",
	FlagBehavior: "Review the agent's recent activity volume",
	FlagPattern:  "Audit recent submissions for duplication",
}

func buildRecommendations(level RiskLevel, flags []Flag) []string {
	var recs []string
	seen := make(map[string]bool)
	add := func(r string) {
		if !seen[r] {
			seen[r] = true
			recs = append(recs, r)
		}
	}

	if level == RiskCritical {
		add("Immediate supervisor notification required")
		add("Consider suspending agent access pending review")
	}
	for _, f := range flags {
		if rec, ok := flagRecommendations[f.Type]; ok {
			add(rec)
		}
	}

	return recs
}

func buildAutoActions(level RiskLevel) []string {
	actions := []string{"log_incident"}

	switch level {
	case RiskCritical:
		actions = append(actions, "alert_supervisor", "require_additional_verification")
	case RiskHigh:
		actions = append(actions, "alert_supervisor", "increase_monitoring")
	case RiskMedium:
		actions = append(actions, "increase_monitoring")
	}

	return actions
}
