package sqlite

import (
	"context"
	"fmt"
)

// prepareStatements prepares all SQL statements used by the store.
func (s *sqliteStore) prepareStatements(ctx context.Context) error {
	var err error

	const sqlGetLinkRule = `
		SELECT action, circuit_id, partner_port, partner_label
		FROM link_rules
		WHERE port = ? AND link_label = ?`
	if s.stmtGetLinkRule, err = s.db.PrepareContext(ctx, sqlGetLinkRule); err != nil {
		return fmt.Errorf("prepare GetLinkRule: %w", err)
	}

	const sqlSetLinkRule = `
		INSERT INTO link_rules (port, link_label, action, circuit_id, partner_port, partner_label)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(port, link_label) DO UPDATE SET
		  action = excluded.action,
		  circuit_id = excluded.circuit_id,
		  partner_port = excluded.partner_port,
		  partner_label = excluded.partner_label`
	if s.stmtSetLinkRule, err = s.db.PrepareContext(ctx, sqlSetLinkRule); err != nil {
		return fmt.Errorf("prepare SetLinkRule: %w", err)
	}

	const sqlDeleteLinkRule = "DELETE FROM link_rules WHERE port = ? AND link_label = ?"
	if s.stmtDeleteLinkRule, err = s.db.PrepareContext(ctx, sqlDeleteLinkRule); err != nil {
		return fmt.Errorf("prepare DeleteLinkRule: %w", err)
	}

	const sqlGetCircuitRule = `
		SELECT action, egress_port
		FROM circuit_rules
		WHERE port = ? AND circuit_id = ?`
	if s.stmtGetCircuitRule, err = s.db.PrepareContext(ctx, sqlGetCircuitRule); err != nil {
		return fmt.Errorf("prepare GetCircuitRule: %w", err)
	}

	const sqlSetCircuitRule = `
		INSERT INTO circuit_rules (port, circuit_id, action, egress_port)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(port, circuit_id) DO UPDATE SET
		  action = excluded.action,
		  egress_port = excluded.egress_port`
	if s.stmtSetCircuitRule, err = s.db.PrepareContext(ctx, sqlSetCircuitRule); err != nil {
		return fmt.Errorf("prepare SetCircuitRule: %w", err)
	}

	const sqlDeleteCircuitRule = "DELETE FROM circuit_rules WHERE port = ? AND circuit_id = ?"
	if s.stmtDeleteCircuitRule, err = s.db.PrepareContext(ctx, sqlDeleteCircuitRule); err != nil {
		return fmt.Errorf("prepare DeleteCircuitRule: %w", err)
	}

	const sqlGetAddress = `
		SELECT address
		FROM egress_addresses
		WHERE port = ? AND circuit_id = ?`
	if s.stmtGetAddress, err = s.db.PrepareContext(ctx, sqlGetAddress); err != nil {
		return fmt.Errorf("prepare GetAddress: %w", err)
	}

	const sqlSetAddress = `
		INSERT INTO egress_addresses (port, circuit_id, address)
		VALUES (?, ?, ?)
		ON CONFLICT(port, circuit_id) DO UPDATE SET
		  address = excluded.address`
	if s.stmtSetAddress, err = s.db.PrepareContext(ctx, sqlSetAddress); err != nil {
		return fmt.Errorf("prepare SetAddress: %w", err)
	}

	return nil
}
