// Package sqlite provides a SQLite-backed implementation of the policy
// store.
//
// The database is shared with the external control plane: provisioning
// writes circuits, link pairings and egress addresses into it, and the data
// plane reads them per event. The on-disk store is opened in WAL mode so
// control-plane writes do not block data-plane reads. All queries use
// prepared statements; each method executes a single statement and is
// therefore atomic on its own.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/qnetworks/swapd"
	"github.com/qnetworks/swapd/policy"
)

//go:embed schema.sql
var schemaSQL string

// sqliteStore implements policy.Store using SQLite.
type sqliteStore struct {
	db     *sql.DB
	logger *slog.Logger

	stmtGetLinkRule    *sql.Stmt
	stmtSetLinkRule    *sql.Stmt
	stmtDeleteLinkRule *sql.Stmt

	stmtGetCircuitRule    *sql.Stmt
	stmtSetCircuitRule    *sql.Stmt
	stmtDeleteCircuitRule *sql.Stmt

	stmtGetAddress *sql.Stmt
	stmtSetAddress *sql.Stmt
}

// New opens or creates a policy database at the given path.
func New(ctx context.Context, dbPath string, logger *slog.Logger) (policy.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy", "db", dbPath)

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(dbPath, [][2]string{{"journal_mode", "WAL"}, {"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &sqliteStore{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("opened policy database", "path", dbPath)
	return s, nil
}

// NewInMemory creates an in-memory policy store for testing.
func NewInMemory(ctx context.Context, logger *slog.Logger) (policy.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy", "db", ":memory:")

	db, err := sql.Open(driverName, dsn(":memory:", [][2]string{{"foreign_keys", "1"}}))
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// A connection pool would hand each query a fresh, empty in-memory
	// database.
	db.SetMaxOpenConns(1)

	s := &sqliteStore{db: db, logger: logger}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := s.prepareStatements(ctx); err != nil {
		return fmt.Errorf("failed to prepare statements: %w", err)
	}
	return nil
}

// Close closes all prepared statements and the database connection.
func (s *sqliteStore) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetLinkRule, s.stmtSetLinkRule, s.stmtDeleteLinkRule,
		s.stmtGetCircuitRule, s.stmtSetCircuitRule, s.stmtDeleteCircuitRule,
		s.stmtGetAddress, s.stmtSetAddress,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

func (s *sqliteStore) LinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel) (policy.LinkRule, error) {
	var rule policy.LinkRule
	row := s.stmtGetLinkRule.QueryRowContext(ctx, port, label)
	if err := row.Scan(&rule.Action, &rule.Circuit, &rule.Partner, &rule.PartnerLabel); err != nil {
		if err == sql.ErrNoRows {
			return policy.LinkRule{}, policy.ErrNotFound
		}
		return policy.LinkRule{}, fmt.Errorf("get link rule (%d, %d): %w", port, label, err)
	}
	return rule, nil
}

func (s *sqliteStore) CircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) (policy.CircuitRule, error) {
	var rule policy.CircuitRule
	row := s.stmtGetCircuitRule.QueryRowContext(ctx, port, circuit)
	if err := row.Scan(&rule.Action, &rule.Egress); err != nil {
		if err == sql.ErrNoRows {
			return policy.CircuitRule{}, policy.ErrNotFound
		}
		return policy.CircuitRule{}, fmt.Errorf("get circuit rule (%d, %d): %w", port, circuit, err)
	}
	return rule, nil
}

func (s *sqliteStore) Address(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) (swapd.LinkAddr, error) {
	var addr uint64
	row := s.stmtGetAddress.QueryRowContext(ctx, port, circuit)
	if err := row.Scan(&addr); err != nil {
		if err == sql.ErrNoRows {
			return 0, policy.ErrNotFound
		}
		return 0, fmt.Errorf("get address (%d, %d): %w", port, circuit, err)
	}
	return swapd.LinkAddr(addr), nil
}

func (s *sqliteStore) SetLinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel, rule policy.LinkRule) error {
	if _, err := s.stmtSetLinkRule.ExecContext(ctx, port, label, rule.Action, rule.Circuit, rule.Partner, rule.PartnerLabel); err != nil {
		return fmt.Errorf("set link rule (%d, %d): %w", port, label, err)
	}
	return nil
}

func (s *sqliteStore) SetCircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID, rule policy.CircuitRule) error {
	if _, err := s.stmtSetCircuitRule.ExecContext(ctx, port, circuit, rule.Action, rule.Egress); err != nil {
		return fmt.Errorf("set circuit rule (%d, %d): %w", port, circuit, err)
	}
	return nil
}

func (s *sqliteStore) SetAddress(ctx context.Context, port swapd.Port, circuit swapd.CircuitID, addr swapd.LinkAddr) error {
	if _, err := s.stmtSetAddress.ExecContext(ctx, port, circuit, uint64(addr)); err != nil {
		return fmt.Errorf("set address (%d, %d): %w", port, circuit, err)
	}
	return nil
}

func (s *sqliteStore) DeleteLinkRule(ctx context.Context, port swapd.Port, label swapd.LinkLabel) error {
	if _, err := s.stmtDeleteLinkRule.ExecContext(ctx, port, label); err != nil {
		return fmt.Errorf("delete link rule (%d, %d): %w", port, label, err)
	}
	return nil
}

func (s *sqliteStore) DeleteCircuitRule(ctx context.Context, port swapd.Port, circuit swapd.CircuitID) error {
	if _, err := s.stmtDeleteCircuitRule.ExecContext(ctx, port, circuit); err != nil {
		return fmt.Errorf("delete circuit rule (%d, %d): %w", port, circuit, err)
	}
	return nil
}
