package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/inqbatorchris/aimee-sub007/internal/db"
	"github.com/inqbatorchris/aimee-sub007/internal/geo"
	"github.com/inqbatorchris/aimee-sub007/internal/topology"
)

func requireTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func mustDeriveDatabaseURL(t *testing.T, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newTestDatabaseName() string {
	// Safe identifier (letters/digits/underscores) so we can use it without quoting.
	return fmt.Sprintf("topology_editor_test_%d", time.Now().UnixNano())
}

func execAdmin(ctx context.Context, adminURL, sql string) error {
	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, sql)
	return err
}

func migrationsDir(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(thisFile), "..", "..", "migrations"))
}

func applyMigrations(ctx context.Context, conn *pgx.Conn, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var ups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	adminURL := requireTestDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := newTestDatabaseName()
	testDBURL := mustDeriveDatabaseURL(t, adminURL, dbName)

	if err := execAdmin(ctx, adminURL, "CREATE DATABASE "+dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		if err := execAdmin(context.Background(), adminURL, "DROP DATABASE "+dbName+" WITH (FORCE)"); err != nil {
			_ = execAdmin(context.Background(), adminURL, "DROP DATABASE "+dbName)
		}
	})

	mConn, err := pgx.Connect(ctx, testDBURL)
	if err != nil {
		t.Fatalf("connect for migrations: %v", err)
	}
	if err := applyMigrations(ctx, mConn, migrationsDir(t)); err != nil {
		_ = mConn.Close(ctx)
		t.Fatalf("apply migrations: %v", err)
	}
	if err := mConn.Close(ctx); err != nil {
		t.Fatalf("close migration connection: %v", err)
	}

	pool, err := db.Open(ctx, testDBURL)
	if err != nil {
		t.Fatalf("open db pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return New(pool.Queries(), Options{})
}

func TestStore_Postgres_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addr := "1 High Street"
	a, err := s.CreateNode(ctx, topology.NodeCreate{
		Type: "pole", Status: "planned", Position: geo.Point{Lat: 51.5, Lon: -0.12},
		Address: &addr, Attributes: map[string]any{"height_m": 9.0},
	})
	if err != nil {
		t.Fatalf("create node a: %v", err)
	}
	b, err := s.CreateNode(ctx, topology.NodeCreate{Type: "cabinet", Status: "built", Position: geo.Point{Lat: 51.6, Lon: -0.11}})
	if err != nil {
		t.Fatalf("create node b: %v", err)
	}
	if a.Address == nil || *a.Address != addr {
		t.Fatalf("expected address round-trip, got %#v", a.Address)
	}

	inBox, err := s.ListNodes(ctx, topology.NodeFilter{Bounds: &topology.Bounds{
		SouthWest: geo.Point{Lat: 51.4, Lon: -0.2},
		NorthEast: geo.Point{Lat: 51.55, Lon: 0},
	}})
	if err != nil {
		t.Fatalf("list nodes: %v", err)
	}
	if len(inBox) != 1 || inBox[0].ID != a.ID {
		t.Fatalf("expected only node a inside bounds, got %#v", inBox)
	}

	c, err := s.CreateCable(ctx, topology.CableCreate{
		StartNodeID: a.ID, EndNodeID: b.ID, FiberCount: 24, Type: "duct", Status: "planned",
		Path: []geo.Point{a.Position, b.Position},
	})
	if err != nil {
		t.Fatalf("create cable: %v", err)
	}

	reshaped := []geo.Point{a.Position, {Lat: 51.55, Lon: -0.13}, b.Position}
	if err := s.UpdateCablePath(ctx, c.ID, reshaped); err != nil {
		t.Fatalf("update path: %v", err)
	}
	cables, err := s.ListCables(ctx, []string{a.ID})
	if err != nil {
		t.Fatalf("list cables: %v", err)
	}
	if len(cables) != 1 || !geo.Equal(cables[0].Path, reshaped) {
		t.Fatalf("expected reshaped path, got %#v", cables)
	}

	if err := s.BulkUpdateStatus(ctx, []string{a.ID, b.ID}, "active"); err != nil {
		t.Fatalf("bulk update: %v", err)
	}
	active, err := s.ListNodes(ctx, topology.NodeFilter{Statuses: []string{"active"}})
	if err != nil || len(active) != 2 {
		t.Fatalf("expected 2 active nodes, got %v %v", active, err)
	}

	if err := s.UpdateCablePath(ctx, "00000000-0000-0000-0000-000000000000", reshaped); !errors.Is(err, topology.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown cable, got %v", err)
	}
	if _, err := s.CreateCable(ctx, topology.CableCreate{StartNodeID: a.ID, EndNodeID: "not-a-uuid", Type: "duct", Status: "planned", Path: reshaped}); !errors.Is(err, topology.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for bad node id, got %v", err)
	}
}
