package db

// ClientSchema backs the local encrypted preference store of valvectl.
var ClientSchema = []string{schemaPreferences}

// ServerSchema backs the valved backend emulator.
var ServerSchema = []string{
	schemaUsers,
	schemaDevices,
	schemaPistons,
	schemaSchedules,
	schemaTelemetry,
	indexTelemetryDevice,
}

const schemaPreferences = `
CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    date_of_birth TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    preferences TEXT,
    created_at TIMESTAMP NOT NULL
);
`

const schemaDevices = `
CREATE TABLE IF NOT EXISTS devices (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    device_id TEXT UNIQUE NOT NULL,
    status TEXT NOT NULL,
    last_seen TIMESTAMP
);
`

const schemaPistons = `
CREATE TABLE IF NOT EXISTS pistons (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    piston_number INTEGER NOT NULL CHECK (piston_number BETWEEN 1 AND 8),
    state TEXT NOT NULL,
    last_triggered TIMESTAMP,
    UNIQUE (device_id, piston_number)
);
`

const schemaSchedules = `
CREATE TABLE IF NOT EXISTS schedules (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    piston_number INTEGER NOT NULL,
    action TEXT NOT NULL,
    cron_expression TEXT NOT NULL,
    enabled BOOLEAN NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaTelemetry = `
CREATE TABLE IF NOT EXISTS telemetry (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL REFERENCES devices(id) ON DELETE CASCADE,
    piston_id TEXT,
    event_type TEXT NOT NULL,
    payload TEXT,
    created_at TIMESTAMP NOT NULL
);
`

const indexTelemetryDevice = `
CREATE INDEX IF NOT EXISTS idx_telemetry_device_created ON telemetry (device_id, created_at);
`
