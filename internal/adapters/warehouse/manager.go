package warehouse

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/adapters/config"
	"github.com/coursemetrics/metrics-warehouse/internal/adapters/keystore"
	"github.com/coursemetrics/metrics-warehouse/internal/observability"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// Session is one warehouse connection handle plus its creation timestamp.
// Sessions are owned by the Manager; callers obtain one via Checkout, must
// return it via Checkin, and must not use it concurrently with other callers.
type Session struct {
	id        int64
	db        *sqlx.DB
	createdAt time.Time
}

// ID returns the session identity, unique within the process.
func (s *Session) ID() int64 {
	return s.id
}

// DB returns the underlying connection
func (s *Session) DB() *sqlx.DB {
	return s.db
}

// CreatedAt returns when the session was established.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// openFunc creates a driver connection; replaced in tests.
type openFunc func(driver, dsn string) (*sqlx.DB, error)

// Manager owns a fixed-size pool of warehouse sessions with blocking
// checkout/checkin. A session older than the configured TTL is never reused:
// it is closed best-effort and replaced before the next checkout completes.
// Creation failures surface as *ConnectionError and leave no partial handle
// in the pool.
type Manager struct {
	cfg     *config.WarehouseConfig
	secrets keystore.SecretSource
	open    openFunc
	now     func() time.Time

	// slots holds PoolSize entries; nil means the slot has no live session
	// yet and one is created lazily on checkout.
	slots  chan *Session
	nextID atomic.Int64
	closed atomic.Bool
}

// NewManager creates a session manager for the configured warehouse.
func NewManager(cfg *config.WarehouseConfig, secrets keystore.SecretSource) *Manager {
	m := &Manager{
		cfg:     cfg,
		secrets: secrets,
		open:    sqlx.Connect,
		now:     time.Now,
		slots:   make(chan *Session, cfg.PoolSize),
	}
	for i := 0; i < cfg.PoolSize; i++ {
		m.slots <- nil
	}
	return m
}

// Checkout obtains a live session, blocking until a pool slot frees up or ctx
// is done. Stale sessions are replaced transparently.
func (m *Manager) Checkout(ctx context.Context) (*Session, error) {
	if m.closed.Load() {
		return nil, &ConnectionError{Err: fmt.Errorf("manager is closed")}
	}

	select {
	case sess := <-m.slots:
		if sess != nil && m.now().Sub(sess.createdAt) > m.cfg.SessionTTL {
			m.release(sess)
			sess = nil
		}
		if sess == nil {
			created, err := m.create()
			if err != nil {
				// Hand the empty slot back so the pool keeps its size.
				m.slots <- nil
				return nil, err
			}
			sess = created
		}
		return sess, nil

	case <-ctx.Done():
		return nil, &ConnectionError{Err: ctx.Err()}
	}
}

// Checkin returns a session to the pool.
func (m *Manager) Checkin(sess *Session) {
	if m.closed.Load() {
		m.release(sess)
		return
	}
	m.slots <- sess
}

// Ping verifies the warehouse is reachable using a pooled session.
func (m *Manager) Ping(ctx context.Context) error {
	sess, err := m.Checkout(ctx)
	if err != nil {
		return err
	}
	defer m.Checkin(sess)

	if err := sess.db.PingContext(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Close drains the pool and closes every live session.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	logger.Info("closing warehouse session pool")
	for i := 0; i < m.cfg.PoolSize; i++ {
		select {
		case sess := <-m.slots:
			m.release(sess)
		default:
			// Slot is checked out; its session is released on Checkin.
		}
	}
	return nil
}

// create establishes a new tagged session bound to the configured identity.
func (m *Manager) create() (*Session, error) {
	secret, err := m.secrets.Secret()
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("credential loading failed: %w", err)}
	}

	dsn, err := buildDSN(m.cfg, secret)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	db, err := m.open(m.cfg.Driver, dsn)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	// One underlying connection per session; concurrency is bounded by the
	// pool, not by the driver.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	sess := &Session{
		id:        m.nextID.Add(1),
		db:        db,
		createdAt: m.now(),
	}

	observability.SessionsCreated.Inc()
	logger.Info("warehouse session established",
		zap.Int64("session_id", sess.id),
		zap.String("driver", m.cfg.Driver),
		zap.String("host", m.cfg.Host),
		zap.String("database", m.cfg.Database),
		zap.String("account", m.cfg.Account),
		zap.String("role", m.cfg.Role),
		zap.String("cluster", m.cfg.Cluster),
		zap.String("session_tag", m.cfg.SessionTag),
	)

	return sess, nil
}

// release closes a session best-effort: close errors are logged and swallowed,
// never propagated, and never block acquisition of a replacement.
func (m *Manager) release(sess *Session) {
	if sess == nil {
		return
	}
	if err := sess.db.Close(); err != nil {
		logger.Warn("failed to close stale warehouse session",
			zap.Int64("session_id", sess.id),
			zap.Error(err),
		)
	}
}

func buildDSN(cfg *config.WarehouseConfig, secret string) (string, error) {
	switch cfg.Driver {
	case "clickhouse":
		u := url.URL{
			Scheme: "clickhouse",
			User:   url.UserPassword(cfg.User, secret),
			Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Path:   "/" + cfg.Database,
		}
		q := url.Values{}
		// The session tag rides along as log_comment so every query issued on
		// this session is traceable server-side.
		q.Set("log_comment", cfg.SessionTag)
		u.RawQuery = q.Encode()
		return u.String(), nil

	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s application_name=%s",
			cfg.Host, cfg.Port, cfg.User, secret, cfg.Database, cfg.SSLMode, cfg.Schema, cfg.SessionTag,
		), nil

	default:
		return "", fmt.Errorf("unsupported warehouse driver: %s", cfg.Driver)
	}
}
