// Package store appends acquisition run metadata to a MySQL run log.
// It is optional; the server runs without a database unless one is
// configured.
package store

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/frame-lab/dbaserh/dbase"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            INT AUTO_INCREMENT PRIMARY KEY,
	serial        INT NOT NULL,
	started       DATETIME NOT NULL,
	seconds       DOUBLE NOT NULL,
	hv_target     INT NOT NULL,
	fine_gain     DOUBLE NOT NULL,
	pulse_width   DOUBLE NOT NULL,
	events        INT NOT NULL,
	cal_slope     DOUBLE NOT NULL,
	cal_intercept DOUBLE NOT NULL
)`

// Config holds the connection parameters for the run log database
type Config struct {
	// Enabled turns run logging on
	Enabled bool `yaml:"Enabled"`

	Host string `yaml:"Host"`

	Port string `yaml:"Port"`

	User string `yaml:"User"`

	Password string `yaml:"Password"`

	Database string `yaml:"Database"`
}

// DSN formats the config as a go-sql-driver/mysql data source name
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", c.User, c.Password, c.Host, c.Port, c.Database)
}

// DB is a handle to the run log
type DB struct {
	conn *sqlx.DB
}

// Connect opens the run log database and ensures the runs table exists
func Connect(c Config) (*DB, error) {
	conn, err := sqlx.Connect("mysql", c.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "connecting to run log database")
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "creating runs table")
	}
	return &DB{conn: conn}, nil
}

// RecordRun appends one completed acquisition to the run log.
// It satisfies dbase.RunRecorder.
func (d *DB) RecordRun(r dbase.Run) error {
	const q = `INSERT INTO runs
		(serial, started, seconds, hv_target, fine_gain, pulse_width, events, cal_slope, cal_intercept)
		VALUES
		(:serial, :started, :seconds, :hv_target, :fine_gain, :pulse_width, :events, :cal_slope, :cal_intercept)`
	_, err := d.conn.NamedExec(q, r)
	return errors.Wrap(err, "inserting run record")
}

// Runs returns the most recent n runs, newest first
func (d *DB) Runs(n int) ([]dbase.Run, error) {
	var runs []dbase.Run
	err := d.conn.Select(&runs, `SELECT serial, started, seconds, hv_target, fine_gain,
		pulse_width, events, cal_slope, cal_intercept
		FROM runs ORDER BY started DESC LIMIT ?`, n)
	return runs, errors.Wrap(err, "querying run log")
}

// Close releases the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}
