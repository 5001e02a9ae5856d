package model

import "time"

// CrawlStatus is the lifecycle state of a patent ID in the crawl ledger
type CrawlStatus string

const (
	CrawlUnseen  CrawlStatus = "unseen"
	CrawlQueued  CrawlStatus = "queued"
	CrawlFetched CrawlStatus = "fetched"
	CrawlFailed  CrawlStatus = "failed"
)

// CrawlState records what the crawler knows about one patent ID
type CrawlState struct {
	PatentID      string      `json:"patent_id" db:"patent_id"`
	Status        CrawlStatus `json:"status" db:"state"`
	Attempts      int         `json:"attempts" db:"attempts"`
	Empty         bool        `json:"empty" db:"empty"` // Fetched but no inventors listed
	LastError     string      `json:"last_error,omitempty" db:"last_error"`
	RunID         string      `json:"run_id,omitempty" db:"run_id"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	NextAttemptAt time.Time   `json:"next_attempt_at" db:"next_attempt_at"`
}

// RunReport summarizes one crawl run
type RunReport struct {
	RunID     string        `json:"run_id"`
	Requested int           `json:"requested"` // Distinct IDs passed in
	Cached    int           `json:"cached"`    // Already present in the metadata cache
	Deferred  int           `json:"deferred"`  // Held back by the retry policy
	Fetched   int           `json:"fetched"`   // Fetched with at least one inventor
	Empty     int           `json:"empty"`     // Fetched without inventors
	Failed    int           `json:"failed"`    // Fetch failed; left out of the cache
	Duration  time.Duration `json:"duration"`
}
