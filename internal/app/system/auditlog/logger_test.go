package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/phonebook/internal/app/store/audit"
	"github.com/dalemusser/phonebook/internal/app/system/auditlog"
	"github.com/dalemusser/phonebook/internal/app/system/auth"
	"github.com/dalemusser/phonebook/internal/testutil"
	"go.uber.org/zap"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, 1, "sub", "a@b.c")
	logger.Logout(ctx, req, "", "")
	logger.EntityDeleted(ctx, req, "roles", 4)
}

func TestLogger_Log_ConfigModes(t *testing.T) {
	tests := []struct {
		mode   string
		wantDB int
	}{
		{"off", 0},
		{"log", 0},
		{"db", 1},
		{"all", 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			store := audit.New(db)
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: tt.mode, Admin: tt.mode})
			memberID := int64(11)
			logger.Log(ctx, audit.Event{
				Category:  audit.CategoryAuth,
				EventType: audit.EventLoginSuccess,
				MemberID:  &memberID,
				Success:   true,
			})

			events, err := store.GetByMember(ctx, memberID, 10)
			if err != nil {
				t.Fatalf("GetByMember failed: %v", err)
			}
			if len(events) != tt.wantDB {
				t.Errorf("mode %q: expected %d stored events, got %d", tt.mode, tt.wantDB, len(events))
			}
		})
	}
}

func TestLogger_LoginFailedInactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: "db"})
	req := httptest.NewRequest("GET", "/user/callback", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")

	logger.LoginFailedInactive(ctx, req, 5, "sub-5", "five@example.org")

	events, err := store.GetByMember(ctx, 5, 10)
	if err != nil {
		t.Fatalf("GetByMember failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.EventType != audit.EventLoginFailedInactive || e.Success {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.IP != "10.0.0.1" {
		t.Errorf("IP: got %q, want first forwarded address", e.IP)
	}
	if e.ActorSubject != "sub-5" {
		t.Errorf("ActorSubject: got %q", e.ActorSubject)
	}
}

func TestLogger_EntityUpdated_RecordsActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Admin: "db"})
	req := auth.WithUser(httptest.NewRequest("PUT", "/api/v1/institutions/3", nil),
		&auth.SessionUser{Subject: "admin-sub", Email: "admin@example.org"})

	logger.EntityUpdated(ctx, req, "institutions", 3, []string{"full_name", "rorid"})

	events, err := store.Query(ctx, audit.QueryFilter{Category: audit.CategoryAdmin, Entity: "institutions"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ActorSubject != "admin-sub" || e.ActorEmail != "admin@example.org" {
		t.Errorf("actor not recorded: %+v", e)
	}
	if e.Details["fields_changed"] != "full_name,rorid" {
		t.Errorf("fields_changed: got %q", e.Details["fields_changed"])
	}
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{"all", "db", "log", "off"} {
		if !auditlog.ValidMode(m) {
			t.Errorf("ValidMode(%q) = false", m)
		}
	}
	if auditlog.ValidMode("verbose") {
		t.Error("ValidMode(verbose) = true")
	}
}
