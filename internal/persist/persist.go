// Package persist snapshots decompiler progress — per-procedure status
// and recovered signature — to a SQL database (or a flat file, see
// snapshot.go) between runs, so a long decompilation can resume instead
// of starting over. Grounded on internal/database/db_manager.go's
// DBManager connection-pool pattern, extended with a sqlserver driver
// mapping and narrowed from generic query execution down to the single
// procedures table this package owns.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/boomerang-decompiler/boomerang/internal/logging"
	"github.com/boomerang-decompiler/boomerang/internal/proc"
)

// Store is a pooled connection to a database holding one procedures
// table, keyed by address, recording each user procedure's status and
// recovered signature across driver runs.
type Store struct {
	db *sql.DB
	driver string
	log *logging.Logger
}

// Open connects to dsn using driver ("sqlite", "postgres", "mysql" or
// "sqlserver"), creates the procedures table if it doesn't exist yet, and
// configures the same pool limits db_manager.go used for its generic
// connections.
func Open(driver, dsn string, log *logging.Logger) (*Store, error) {
	driverName, err := driverNameFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("persist: open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: ping %s: %w", driver, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, driver: driverName, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverNameFor(driver string) (string, error) {
	switch driver {
	case "sqlite", "sqlite3", "":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("persist: unsupported driver %q", driver)
	}
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS procedures (
		address BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		status INTEGER NOT NULL,
		signature TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("persist: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying pool.
func (s *Store) Close() error { return s.db.Close() }

// signatureRecord is the JSON shape a proc.Signature round-trips through;
// *types.Type carries no (Un)MarshalJSON, so parameters and returns are
// flattened to their String() form. That's lossy but enough to report
// progress; a resumed run re-derives real types from the CFG, it never
// reads them back out of this column.
type signatureRecord struct {
	Name string `json:"name"`
	Params []string `json:"params"`
	Returns []string `json:"returns"`
}

func toRecord(sig *proc.Signature) signatureRecord {
	if sig == nil {
		return signatureRecord{}
	}
	rec := signatureRecord{Name: sig.Name}
	for _, p := range sig.Params {
		rec.Params = append(rec.Params, fmt.Sprintf("%s %s", p.Type.String(), p.Name))
	}
	for _, r := range sig.Returns {
		rec.Returns = append(rec.Returns, r.String())
	}
	return rec
}

// SaveProgress upserts one row per user procedure in pr, recording its
// current status and recovered signature, in a single transaction.
func (s *Store) SaveProgress(pr *proc.Program) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := s.saveInTx(tx, pr); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) saveInTx(tx *sql.Tx, pr *proc.Program) error {
	for _, up := range pr.UserProcs() {
		blob, err := json.Marshal(toRecord(up.Signature()))
		if err != nil {
			return fmt.Errorf("persist: marshal signature for %s: %w", up.ProcName(), err)
		}
		if err := s.upsert(tx, up.Address(), up.ProcName(), int(up.Status), string(blob)); err != nil {
			return fmt.Errorf("persist: save %s: %w", up.ProcName(), err)
		}
	}
	if s.log != nil {
		s.log.WithPass("persist").Info("saved progress for %d procedures", len(pr.UserProcs()))
	}
	return nil
}

func (s *Store) upsert(tx *sql.Tx, addr uint64, name string, status int, sigJSON string) error {
	now := time.Now()
	res, err := tx.Exec(s.rebind(`UPDATE procedures SET name = ?, status = ?, signature = ?, updated_at = ? WHERE address = ?`),
		name, status, sigJSON, now, addr)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = tx.Exec(s.rebind(`INSERT INTO procedures (address, name, status, signature, updated_at) VALUES (?, ?, ?, ?, ?)`),
		addr, name, status, sigJSON, now)
	return err
}

// ProgressRow is one row read back by LoadProgress.
type ProgressRow struct {
	Address uint64
	Name string
	Status proc.Status
	Signature string
	UpdatedAt time.Time
}

// LoadProgress returns every previously saved procedure row, ordered by
// address, for display or for a resumed run to compare against the
// current call graph.
func (s *Store) LoadProgress() ([]ProgressRow, error) {
	rows, err := s.db.Query(`SELECT address, name, status, signature, updated_at FROM procedures ORDER BY address`)
	if err != nil {
		return nil, fmt.Errorf("persist: load progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressRow
	for rows.Next() {
		var r ProgressRow
		var status int
		if err := rows.Scan(&r.Address, &r.Name, &status, &r.Signature, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("persist: scan progress row: %w", err)
		}
		r.Status = proc.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// rebind rewrites ?-style placeholders to postgres's $N form; every other
// supported driver accepts ? natively.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
