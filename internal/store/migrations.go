package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id             INTEGER PRIMARY KEY,
    model          TEXT NOT NULL,
    started_at     DATETIME NOT NULL,
    finished_at    DATETIME NOT NULL,
    club_count     INTEGER NOT NULL DEFAULT 0,
    group_count    INTEGER NOT NULL DEFAULT 0,
    leader_club_id INTEGER NOT NULL DEFAULT 0,
    warnings       TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);

CREATE TABLE IF NOT EXISTS rankings (
    run_id        INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    position      INTEGER NOT NULL,
    club_id       INTEGER NOT NULL,
    club_name     TEXT NOT NULL DEFAULT '',
    overall_score REAL NOT NULL DEFAULT 0,
    sub_scores    TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (run_id, club_id)
);

CREATE INDEX IF NOT EXISTS idx_rankings_club ON rankings(club_id);

CREATE TABLE IF NOT EXISTS club_groups (
    run_id           INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    kind             TEXT NOT NULL,
    position         INTEGER NOT NULL,
    group_name       TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    club_ids         TEXT NOT NULL DEFAULT '[]',
    similarity_score REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, kind, position)
);

CREATE TABLE IF NOT EXISTS chat_metrics (
    run_id           INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    club_id          INTEGER NOT NULL,
    total_messages   INTEGER NOT NULL DEFAULT 0,
    unique_senders   INTEGER NOT NULL DEFAULT 0,
    engagement_score REAL NOT NULL DEFAULT 0,
    response_rate    REAL NOT NULL DEFAULT 0,
    metrics          TEXT NOT NULL DEFAULT '{}',
    PRIMARY KEY (run_id, club_id)
);
`
