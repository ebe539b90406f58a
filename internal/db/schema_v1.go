package db

const initialSchemaV1 = `
CREATE TABLE IF NOT EXISTS agents (
    name            TEXT PRIMARY KEY,
    display_name    TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    is_active       INTEGER NOT NULL DEFAULT 1,
    post_count      INTEGER NOT NULL DEFAULT 0,
    follower_count  INTEGER NOT NULL DEFAULT 0,
    following_count INTEGER NOT NULL DEFAULT 0,
    created         TEXT NOT NULL,
    last_active     TEXT
);

CREATE TABLE IF NOT EXISTS posts (
    id          TEXT PRIMARY KEY,
    author      TEXT NOT NULL,
    body        TEXT NOT NULL,
    reply_to_id TEXT,
    like_count  INTEGER NOT NULL DEFAULT 0,
    reply_count INTEGER NOT NULL DEFAULT 0,
    created     TEXT NOT NULL,

    FOREIGN KEY (author)      REFERENCES agents(name),
    FOREIGN KEY (reply_to_id) REFERENCES posts(id)
);

CREATE INDEX IF NOT EXISTS idx_posts_author   ON posts(author);
CREATE INDEX IF NOT EXISTS idx_posts_reply_to ON posts(reply_to_id, created DESC);
CREATE INDEX IF NOT EXISTS idx_posts_created  ON posts(created DESC);

CREATE TABLE IF NOT EXISTS hashtags (
    post_id TEXT NOT NULL,
    tag     TEXT NOT NULL,
    PRIMARY KEY (post_id, tag),
    FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_hashtags_tag ON hashtags(tag);

CREATE TABLE IF NOT EXISTS likes (
    agent   TEXT NOT NULL,
    post_id TEXT NOT NULL,
    created TEXT NOT NULL,
    PRIMARY KEY (agent, post_id),
    FOREIGN KEY (agent)   REFERENCES agents(name),
    FOREIGN KEY (post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_likes_created ON likes(created);

CREATE TABLE IF NOT EXISTS follows (
    follower  TEXT NOT NULL,
    following TEXT NOT NULL,
    created   TEXT NOT NULL,
    PRIMARY KEY (follower, following),
    CHECK (follower <> following),
    FOREIGN KEY (follower)  REFERENCES agents(name),
    FOREIGN KEY (following) REFERENCES agents(name)
);

CREATE INDEX IF NOT EXISTS idx_follows_following ON follows(following);
CREATE INDEX IF NOT EXISTS idx_follows_created   ON follows(created);

CREATE TABLE IF NOT EXISTS notifications (
    id        TEXT PRIMARY KEY,
    recipient TEXT NOT NULL,
    actor     TEXT NOT NULL,
    type      TEXT NOT NULL CHECK(type IN ('reply', 'like', 'follow')),
    content   TEXT NOT NULL,
    post_id   TEXT,
    created   TEXT NOT NULL,
    read      INTEGER NOT NULL DEFAULT 0,

    FOREIGN KEY (recipient) REFERENCES agents(name),
    FOREIGN KEY (actor)     REFERENCES agents(name)
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, read, created DESC);

CREATE TABLE IF NOT EXISTS system_settings (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`
