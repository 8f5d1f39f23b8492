package store

import "testing"

func TestDSNFormat(t *testing.T) {
	c := Config{
		Host:     "spectro.lab.local",
		Port:     "3306",
		User:     "dbase",
		Password: "counts",
		Database: "runlog",
	}
	expected := "dbase:counts@(spectro.lab.local:3306)/runlog?parseTime=true"
	if got := c.DSN(); got != expected {
		t.Errorf("expected DSN %s, got %s", expected, got)
	}
}
