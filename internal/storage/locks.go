package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tracker/internal/ports"
)

var (
	_ ports.PassLocker = (*SQLiteRepository)(nil)
	_ ports.PassLocker = (*PostgresRepository)(nil)
)

const (
	// A lease outlives any pass; an expired one belongs to a crashed process.
	passLockLease = 2 * time.Minute
	passLockPoll  = 50 * time.Millisecond
)

// LockOwner takes a lease row in pass_locks, polling while another process
// holds an unexpired lease for the owner.
func (r *SQLiteRepository) LockOwner(ctx context.Context, owner string) (func(), error) {
	token := uuid.NewString()
	for {
		now := time.Now()
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO pass_locks (owner, token, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT (owner) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
			 WHERE pass_locks.expires_at < ?`,
			owner, token, now.Add(passLockLease).UnixMilli(), now.UnixMilli())
		if err != nil {
			return nil, unavailable("lock owner", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, unavailable("lock owner", err)
		}
		if n > 0 {
			return func() { r.unlockOwner(owner, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(passLockPoll):
		}
	}
}

func (r *SQLiteRepository) unlockOwner(owner, token string) {
	if _, err := r.db.ExecContext(context.Background(),
		`DELETE FROM pass_locks WHERE owner = ? AND token = ?`, owner, token); err != nil {
		slog.Error("Failed to release pass lock, lease will expire", "owner", owner, "error", err)
	}
}

// LockOwner holds a session-level advisory lock on a dedicated connection
// until unlock is called.
func (r *PostgresRepository) LockOwner(ctx context.Context, owner string) (func(), error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, unavailable("lock owner", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtext($1))`, owner); err != nil {
		conn.Release()
		return nil, unavailable("lock owner", err)
	}

	return func() {
		ctx := context.Background()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, owner); err != nil {
			slog.Error("Failed to release advisory lock, closing connection", "owner", owner, "error", err)
			// Closing the session drops the lock; the pool discards closed connections.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}
