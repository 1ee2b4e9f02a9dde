package main

// Config holds the daemon's runtime settings, adapted from the teacher's
// pkg/daemon config (RootPersistentDir/APIAddr) down to the handful of
// knobs this backend actually needs: where to keep the bolt store, what
// address to serve the HTTP/websocket surface on, and the sweeper's tick
// interval.
type Config struct {
	PersistDir    string
	APIAddr       string
	SweepInterval string
	SweepBatch    int
	UserIDHeader  string
}

// DefaultConfig returns the Config a freshly started daemon uses absent any
// flag overrides.
func DefaultConfig() Config {
	return Config{
		PersistDir:    "darveserverd-data",
		APIAddr:       "localhost:5580",
		SweepInterval: "30s",
		SweepBatch:    20,
		UserIDHeader:  "X-User-Id",
	}
}
