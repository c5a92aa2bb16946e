package domain

import "time"

// Poll is one row of the seed table.
type Poll struct {
	ID       int64     `json:"-"`
	Question string    `json:"question"`
	PubDate  time.Time `json:"pub_date"`
}

// SeedSize is the number of rows the bootstrapper writes.
const SeedSize = 100

// BootstrapResult describes what the schema bootstrap did at startup.
type BootstrapResult struct {
	Table    string
	Existed  bool
	RowCount int64
	Seeded   bool
}
