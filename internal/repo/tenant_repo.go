package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/merchantkit/storesync/internal/model"
	"github.com/merchantkit/storesync/internal/pkg/dbutil"
	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
)

var tenantFields = []string{
	"id", "name", "domain", "is_active", "needs_reconnection", "reconnect_reason", "ctime", "mtime",
}

type TenantRepo struct {
	db *sql.DB
}

func NewTenantRepo(db *sql.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) Get(ctx context.Context, id string) (*model.Tenant, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("tenants", where, tenantFields)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, dbutil.Rebind(sqlStr), args...)
	tenant, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return tenant, err
}

func (r *TenantRepo) ListActive(ctx context.Context) ([]model.Tenant, error) {
	where := map[string]interface{}{"is_active": true, "_orderby": "id asc"}
	sqlStr, args, err := builder.BuildSelect("tenants", where, tenantFields)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, dbutil.Rebind(sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tenants []model.Tenant
	for rows.Next() {
		tenant, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *tenant)
	}
	return tenants, rows.Err()
}

// SetReconnection flips the manual-reconnection flag. Setting it pauses the
// tenant's sync cycle until an operator reconnects the store.
func (r *TenantRepo) SetReconnection(ctx context.Context, id string, needs bool, reason string) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"needs_reconnection": needs,
		"reconnect_reason":   reason,
		"mtime":              time.Now().UnixMilli(),
	}
	sqlStr, args, err := builder.BuildUpdate("tenants", where, update)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, dbutil.Rebind(sqlStr), args...)
	return err
}

func (r *TenantRepo) GetCredential(ctx context.Context, tenantID string) (*model.TenantCredential, error) {
	const query = `SELECT tenant_id, access_token, expires_at FROM tenant_credentials WHERE tenant_id = $1`
	row := r.db.QueryRowContext(ctx, query, tenantID)
	var cred model.TenantCredential
	var expiresAt sql.NullInt64
	if err := row.Scan(&cred.TenantID, &cred.AccessToken, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	if expiresAt.Valid {
		cred.ExpiresAt = time.UnixMilli(expiresAt.Int64)
	}
	return &cred, nil
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var tenant model.Tenant
	var reason sql.NullString
	var ctime, mtime int64
	if err := row.Scan(&tenant.ID, &tenant.Name, &tenant.Domain, &tenant.IsActive,
		&tenant.NeedsReconnection, &reason, &ctime, &mtime); err != nil {
		return nil, err
	}
	tenant.ReconnectReason = reason.String
	tenant.Ctime = time.UnixMilli(ctime)
	tenant.Mtime = time.UnixMilli(mtime)
	return &tenant, nil
}
