package store

import (
	"time"
)

// Program describes one configured lead-generation target. A program is
// immutable for the duration of a run; the enabled flag is re-read between
// candidates to support cooperative cancellation.
type Program struct {
	ID             int64     `json:"id"`
	OwnerID        int64     `json:"owner_id"`
	Name           string    `json:"name"`
	Niche          string    `json:"niche"`
	Chats          []string  `json:"chats"`
	SafetyMode     string    `json:"safety_mode"` // fast, normal, careful
	MinScore       int       `json:"min_score"`
	MaxLeadsPerRun int       `json:"max_leads_per_run"`
	ScheduleTime   string    `json:"schedule_time"` // "HH:MM", empty = manual only
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Owner is the account a program belongs to. Tier gates the weekly
// qualification quota.
type Owner struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Tier          string     `json:"tier"` // free, paid
	TierExpiresAt *time.Time `json:"tier_expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Lead is a persisted, scored prospect, unique per (program, user).
type Lead struct {
	ID          int64      `json:"id"`
	ProgramID   int64      `json:"program_id"`
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Score       int        `json:"score"`
	Status      string     `json:"status"` // new, qualified, rejected
	Reasoning   string     `json:"reasoning"`
	DedupHash   string     `json:"dedup_hash"`
	QualifiedAt *time.Time `json:"qualified_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Pain is one normalized pain signal extracted from a qualified lead.
// QuoteHash is the dedup key over (lead, normalized quote).
type Pain struct {
	ID          int64     `json:"id"`
	LeadID      int64     `json:"lead_id"`
	ProgramID   int64     `json:"program_id"`
	Category    string    `json:"category"`
	Intensity   int       `json:"intensity"` // 1..5
	Quote       string    `json:"quote"`     // anonymized
	QuoteHash   string    `json:"quote_hash"`
	ClusterID   *int64    `json:"cluster_id,omitempty"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Cluster groups related pains and carries rolling statistics. PainCount and
// AvgIntensity are always recomputable from the member pains.
type Cluster struct {
	ID            int64     `json:"id"`
	ProgramID     int64     `json:"program_id"`
	Label         string    `json:"label"`
	Category      string    `json:"category"`
	PainCount     int       `json:"pain_count"`
	AvgIntensity  float64   `json:"avg_intensity"`
	Trend         string    `json:"trend"` // rising, stable, falling
	PostGenerated bool      `json:"post_generated"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Draft is a generated post draft for a cluster.
type Draft struct {
	ID             int64     `json:"id"`
	ClusterID      int64     `json:"cluster_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Status         string    `json:"status"` // draft
	WithEnrichment bool      `json:"with_enrichment"`
	CreatedAt      time.Time `json:"created_at"`
}

// RunReport is the immutable record of one orchestrator invocation.
type RunReport struct {
	ID                    int64     `json:"id"`
	ReportID              string    `json:"report_id"`
	ProgramID             int64     `json:"program_id"`
	Status                string    `json:"status"` // completed, failed
	StartedAt             time.Time `json:"started_at"`
	FinishedAt            time.Time `json:"finished_at"`
	CandidatesSeen        int       `json:"candidates_seen"`
	LeadsCreated          int       `json:"leads_created"`
	LeadsUpdated          int       `json:"leads_updated"`
	QualificationFailures int       `json:"qualification_failures"`
	QuotaSkips            int       `json:"quota_skips"`
	PainsExtracted        int       `json:"pains_extracted"`
	EnrichmentUnavailable bool      `json:"enrichment_unavailable"`
}

const (
	LeadStatusNew       = "new"
	LeadStatusQualified = "qualified"
	LeadStatusRejected  = "rejected"

	TrendRising  = "rising"
	TrendStable  = "stable"
	TrendFalling = "falling"

	TierFree = "free"
	TierPaid = "paid"

	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const Schema = `
CREATE TABLE IF NOT EXISTS owners (
	id INTEGER PRIMARY KEY,
	username TEXT DEFAULT '',
	tier TEXT NOT NULL DEFAULT 'free',
	tier_expires_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS programs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	niche TEXT NOT NULL,
	safety_mode TEXT NOT NULL DEFAULT 'normal',
	min_score INTEGER NOT NULL DEFAULT 60,
	max_leads_per_run INTEGER NOT NULL DEFAULT 20,
	schedule_time TEXT DEFAULT '',
	enabled BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_programs_owner ON programs(owner_id);

CREATE TABLE IF NOT EXISTS program_chats (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	program_id INTEGER NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
	chat_id TEXT NOT NULL,
	UNIQUE(program_id, chat_id)
);

CREATE TABLE IF NOT EXISTS leads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	program_id INTEGER NOT NULL REFERENCES programs(id),
	user_id TEXT NOT NULL,
	username TEXT DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'new',
	reasoning TEXT DEFAULT '',
	dedup_hash TEXT NOT NULL,
	qualified_at DATETIME,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(program_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_updated ON leads(updated_at);

CREATE TABLE IF NOT EXISTS pains (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	lead_id INTEGER NOT NULL REFERENCES leads(id),
	program_id INTEGER NOT NULL REFERENCES programs(id),
	category TEXT NOT NULL DEFAULT 'general',
	intensity INTEGER NOT NULL DEFAULT 1,
	quote TEXT NOT NULL,
	quote_hash TEXT NOT NULL,
	cluster_id INTEGER REFERENCES clusters(id) ON DELETE SET NULL,
	extracted_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(lead_id, quote_hash)
);
CREATE INDEX IF NOT EXISTS idx_pains_program ON pains(program_id);
CREATE INDEX IF NOT EXISTS idx_pains_cluster ON pains(cluster_id);

CREATE TABLE IF NOT EXISTS clusters (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	program_id INTEGER NOT NULL REFERENCES programs(id),
	label TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT 'general',
	pain_count INTEGER NOT NULL DEFAULT 0,
	avg_intensity REAL NOT NULL DEFAULT 0,
	trend TEXT NOT NULL DEFAULT 'stable',
	post_generated BOOLEAN NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_clusters_program ON clusters(program_id);

CREATE TABLE IF NOT EXISTS drafts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cluster_id INTEGER NOT NULL REFERENCES clusters(id),
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'draft',
	with_enrichment BOOLEAN NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS run_reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id TEXT UNIQUE NOT NULL,
	program_id INTEGER NOT NULL REFERENCES programs(id),
	status TEXT NOT NULL DEFAULT 'completed',
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	candidates_seen INTEGER NOT NULL DEFAULT 0,
	leads_created INTEGER NOT NULL DEFAULT 0,
	leads_updated INTEGER NOT NULL DEFAULT 0,
	qualification_failures INTEGER NOT NULL DEFAULT 0,
	quota_skips INTEGER NOT NULL DEFAULT 0,
	pains_extracted INTEGER NOT NULL DEFAULT 0,
	enrichment_unavailable BOOLEAN NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_run_reports_program ON run_reports(program_id);
`
