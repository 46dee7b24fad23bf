package tenants_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/inkwellhq/inkwell/internal/tenants"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFinder struct {
	tenants map[uuid.UUID]tenants.Tenant
}

func (f *fakeFinder) Find(ctx context.Context, id uuid.UUID) (*tenants.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, tenants.ErrNotFound
	}
	return &t, nil
}

type countingProvisioner struct {
	calls int
	err   error
}

func (p *countingProvisioner) Ensure(ctx context.Context, t *tenants.Tenant) (*sql.DB, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return nil, nil
}

func newManager(t *testing.T, status string, prov *countingProvisioner) (*tenants.Manager, uuid.UUID) {
	t.Helper()

	id := uuid.New()
	finder := &fakeFinder{tenants: map[uuid.UUID]tenants.Tenant{
		id: {ID: id, Name: "acme", Status: status, DatabaseName: tenants.DatabaseName(id)},
	}}
	return tenants.NewManager(finder, prov, testLogger()), id
}

func TestDatabaseName(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	got := tenants.DatabaseName(id)
	want := "inkwell_t_11111111222233334444555555555555"
	if got != want {
		t.Errorf("DatabaseName() = %q, want %q", got, want)
	}
	if strings.Contains(got, "-") {
		t.Error("database name must not contain dashes")
	}
}

func TestActivate(t *testing.T) {
	prov := &countingProvisioner{}
	manager, id := newManager(t, tenants.StatusActive, prov)

	tc, err := manager.Activate(context.Background(), id)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	defer tc.Release()

	if tc.ID() != id {
		t.Errorf("context tenant = %s, want %s", tc.ID(), id)
	}
	if tc.Tenant().Name != "acme" {
		t.Errorf("tenant name = %q", tc.Tenant().Name)
	}
	if prov.calls != 1 {
		t.Errorf("provisioner calls = %d, want 1", prov.calls)
	}
}

func TestActivateEveryUnitOfWork(t *testing.T) {
	prov := &countingProvisioner{}
	manager, id := newManager(t, tenants.StatusActive, prov)

	// Each activation re-verifies provisioning; the provisioner is
	// responsible for making repeat calls cheap.
	for range 3 {
		tc, err := manager.Activate(context.Background(), id)
		if err != nil {
			t.Fatalf("Activate() error = %v", err)
		}
		tc.Release()
	}

	if prov.calls != 3 {
		t.Errorf("provisioner calls = %d, want 3", prov.calls)
	}
}

func TestActivateNotActive(t *testing.T) {
	for _, status := range []string{tenants.StatusSuspended, tenants.StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			prov := &countingProvisioner{}
			manager, id := newManager(t, status, prov)

			_, err := manager.Activate(context.Background(), id)
			if !errors.Is(err, tenants.ErrNotActive) {
				t.Errorf("Activate() error = %v, want ErrNotActive", err)
			}
			if prov.calls != 0 {
				t.Errorf("provisioner called for inactive tenant")
			}
		})
	}
}

func TestActivateUnknownTenant(t *testing.T) {
	manager, _ := newManager(t, tenants.StatusActive, &countingProvisioner{})

	_, err := manager.Activate(context.Background(), uuid.New())
	if !errors.Is(err, tenants.ErrNotFound) {
		t.Errorf("Activate() error = %v, want ErrNotFound", err)
	}
}

func TestActivateProvisioningFailure(t *testing.T) {
	prov := &countingProvisioner{err: tenants.ErrProvisioning}
	manager, id := newManager(t, tenants.StatusActive, prov)

	_, err := manager.Activate(context.Background(), id)
	if !errors.Is(err, tenants.ErrProvisioning) {
		t.Errorf("Activate() error = %v, want ErrProvisioning", err)
	}
}

func TestReleasedContextPanics(t *testing.T) {
	manager, id := newManager(t, tenants.StatusActive, &countingProvisioner{})

	tc, err := manager.Activate(context.Background(), id)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	tc.Release()

	defer func() {
		if recover() == nil {
			t.Error("DB() after Release should panic")
		}
	}()
	tc.DB()
}

func TestHTTPActivate(t *testing.T) {
	manager, id := newManager(t, tenants.StatusActive, &countingProvisioner{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := tenants.Activate(w, r, manager, testLogger())
		if !ok {
			return
		}
		defer tc.Release()
		w.WriteHeader(http.StatusNoContent)
	})

	mux := http.NewServeMux()
	mux.Handle("GET /tenants/{tenant}/ping", handler)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "active tenant", path: "/tenants/" + id.String() + "/ping", want: http.StatusNoContent},
		{name: "malformed id", path: "/tenants/not-a-uuid/ping", want: http.StatusBadRequest},
		{name: "unknown tenant", path: "/tenants/" + uuid.NewString() + "/ping", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHTTPActivateSuspendedTenant(t *testing.T) {
	manager, id := newManager(t, tenants.StatusSuspended, &countingProvisioner{})

	mux := http.NewServeMux()
	mux.Handle("GET /tenants/{tenant}/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := tenants.Activate(w, r, manager, testLogger()); !ok {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants/"+id.String()+"/ping", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for suspended tenant", rec.Code)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: tenants.ErrNotFound, want: http.StatusNotFound},
		{err: tenants.ErrDuplicate, want: http.StatusConflict},
		{err: tenants.ErrNotActive, want: http.StatusForbidden},
		{err: tenants.ErrInvalidName, want: http.StatusBadRequest},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tenants.MapHTTPStatus(tt.err); got != tt.want {
			t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
