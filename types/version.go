package types

// Version is the canonical project version.
// The CLI, the capture container format, and the stream event schema all
// share this version per the lockstep versioning policy.
const Version = "0.3.0"

// EventSchemaVersion is the stream lifecycle event schema version.
// Notification adapters embed it in every published event so downstream
// consumers can detect shape changes.
const EventSchemaVersion = "0.1.0"
