// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/phonebook/internal/app/store/audit"
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, provisioning).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for create/update/delete of directory entities.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// ValidMode reports whether s is one of the accepted config values.
func ValidMode(s string) bool {
	switch s {
	case "all", "db", "log", "off":
		return true
	}
	return false
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via audit.Store) and/or structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.MemberID != nil {
		fields = append(fields, zap.Int64("member_id", *event.MemberID))
	}
	if event.ActorSubject != "" {
		fields = append(fields, zap.String("actor_subject", event.ActorSubject))
	}
	if event.Entity != "" {
		fields = append(fields, zap.String("entity", event.Entity))
	}
	if event.EntityID != nil {
		fields = append(fields, zap.Int64("entity_id", *event.EntityID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func base(r *http.Request, category, eventType string, success bool) audit.Event {
	e := audit.Event{
		Category:  category,
		EventType: eventType,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
	if u, ok := auth.CurrentUser(r); ok {
		e.ActorSubject = u.Subject
		e.ActorEmail = u.Email
	}
	return e
}

// --- Authentication Events ---

// LoginSuccess logs a token being issued to a member.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, memberID int64, subject, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginSuccess, true)
	e.MemberID = &memberID
	e.ActorSubject, e.ActorEmail = subject, email
	l.Log(ctx, e)
}

// LoginFailed logs a callback that did not yield a token.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailed, false)
	e.ActorEmail = email
	e.FailureReason = reason
	l.Log(ctx, e)
}

// LoginFailedInactive logs a known member whose is_active flag is false.
func (l *Logger) LoginFailedInactive(ctx context.Context, r *http.Request, memberID int64, subject, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLoginFailedInactive, false)
	e.MemberID = &memberID
	e.ActorSubject, e.ActorEmail = subject, email
	e.FailureReason = "member inactive"
	l.Log(ctx, e)
}

// MemberProvisioned logs a member created on first login.
func (l *Logger) MemberProvisioned(ctx context.Context, r *http.Request, memberID, institutionID int64, subject, email string) {
	e := base(r, audit.CategoryAuth, audit.EventMemberProvisioned, true)
	e.MemberID = &memberID
	e.ActorSubject, e.ActorEmail = subject, email
	e.Entity = "members"
	e.EntityID = &memberID
	e.Details = map[string]string{"institution_id": strconv.FormatInt(institutionID, 10)}
	l.Log(ctx, e)
}

// InstitutionProvisioned logs an institution created from an IdP name.
func (l *Logger) InstitutionProvisioned(ctx context.Context, r *http.Request, institutionID int64, name string) {
	e := base(r, audit.CategoryAuth, audit.EventInstitutionFromIdP, true)
	e.Entity = "institutions"
	e.EntityID = &institutionID
	e.Details = map[string]string{"full_name": name}
	l.Log(ctx, e)
}

// Logout logs the session cookie being cleared.
func (l *Logger) Logout(ctx context.Context, r *http.Request, subject, email string) {
	e := base(r, audit.CategoryAuth, audit.EventLogout, true)
	if subject != "" {
		e.ActorSubject, e.ActorEmail = subject, email
	}
	l.Log(ctx, e)
}

// --- Admin Events ---

// EntityCreated logs a create on entity (a collection name).
func (l *Logger) EntityCreated(ctx context.Context, r *http.Request, entity string, id int64, details map[string]string) {
	l.entity(ctx, r, audit.EventEntityCreated, entity, id, details)
}

// EntityUpdated logs an update; fields lists the keys that were applied.
func (l *Logger) EntityUpdated(ctx context.Context, r *http.Request, entity string, id int64, fields []string) {
	var details map[string]string
	if len(fields) > 0 {
		details = map[string]string{"fields_changed": strings.Join(fields, ",")}
	}
	l.entity(ctx, r, audit.EventEntityUpdated, entity, id, details)
}

// EntityDeleted logs a delete.
func (l *Logger) EntityDeleted(ctx context.Context, r *http.Request, entity string, id int64) {
	l.entity(ctx, r, audit.EventEntityDeleted, entity, id, nil)
}

func (l *Logger) entity(ctx context.Context, r *http.Request, eventType, entity string, id int64, details map[string]string) {
	if l == nil {
		return
	}
	e := base(r, audit.CategoryAdmin, eventType, true)
	e.Entity = entity
	e.EntityID = &id
	e.Details = details
	l.Log(ctx, e)
}
