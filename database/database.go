// Package database runs queries against the environment's SQL Server instances.
package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/jmoiron/sqlx"

	"conduitqa/config"
)

// Name is a logical database, also used as the SQL Server catalog name.
type Name string

const (
	Admin   Name = "Admin"
	Conduit Name = "Conduit"
)

// ParseName accepts a database name in any case.
func ParseName(s string) (Name, error) {
	for _, n := range []Name{Admin, Conduit} {
		if strings.EqualFold(strings.TrimSpace(s), string(n)) {
			return n, nil
		}
	}
	return "", fmt.Errorf("unknown database %q, expected one of: %s | %s", s, Admin, Conduit)
}

// RequestTimeout bounds one ExecuteQuery call.
const RequestTimeout = 5 * time.Minute

// Resolver maps a database to its server and credentials for the configured environment.
type Resolver struct {
	environment config.Environment
	servers     map[string]string
	admin       config.Credentials
	conduit     config.Credentials

	open func(dsn string) (*sqlx.DB, error)
}

func NewResolver(cfg config.Config) *Resolver {
	return &Resolver{
		environment: cfg.Environment,
		servers:     cfg.Settings.Databases,
		admin:       cfg.DatabaseAdmin,
		conduit:     cfg.DatabaseConduit,
		open: func(dsn string) (*sqlx.DB, error) {
			return sqlx.Open("sqlserver", dsn)
		},
	}
}

// ServerName returns the SQL Server instance hosting db in this environment.
func (r *Resolver) ServerName(db Name) (string, error) {
	server, ok := r.servers[string(db)]
	if !ok || server == "" {
		return "", fmt.Errorf("no sql server mapped for %s-%s", r.environment, db)
	}
	return server, nil
}

func (r *Resolver) Credentials(db Name) (config.Credentials, error) {
	switch db {
	case Admin:
		return r.admin, nil
	case Conduit:
		return r.conduit, nil
	default:
		return config.Credentials{}, fmt.Errorf("unknown database %q", db)
	}
}

// DSN builds the go-mssqldb connection URL for db.
func (r *Resolver) DSN(db Name) (string, error) {
	server, err := r.ServerName(db)
	if err != nil {
		return "", err
	}
	creds, err := r.Credentials(db)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("database", string(db))
	q.Set("TrustServerCertificate", "true")
	q.Set("connection timeout", "30")
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(creds.Username, creds.Password),
		Host:     server,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// ExecuteQuery opens a pool for db, runs fn and always closes the pool.
func ExecuteQuery[T any](ctx context.Context, r *Resolver, db Name, fn Query[T]) (T, error) {
	var zero T
	dsn, err := r.DSN(db)
	if err != nil {
		return zero, err
	}
	conn, err := r.open(dsn)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", db, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("database.execute: warn: close failed database=%s error=%v", db, err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx, conn)
	log.Printf("database.execute: done database=%s latency_ms=%d ok=%t", db, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		return zero, fmt.Errorf("query %s: %w", db, err)
	}
	return out, nil
}
