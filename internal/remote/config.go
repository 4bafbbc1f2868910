package remote

import "time"

// Config is `mqtt { ... }` block of config file.
type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	Broker            string `hcl:"broker"`
	ClientID          string `hcl:"client_id"`
	Username          string `hcl:"username"`
	Password          string `hcl:"password"` // secret
	TopicPrefix       string `hcl:"topic_prefix"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	LogDebug          bool   `hcl:"log_debug"`
	TlsCaFile         string `hcl:"tls_ca_file"`
}

// NetworkTimeout is at least 1 second.
func (c *Config) NetworkTimeout() time.Duration {
	d := defaultNetworkTimeout
	if c.NetworkTimeoutSec != 0 {
		d = time.Duration(c.NetworkTimeoutSec) * time.Second
	}
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Keepalive defaults to half of network timeout.
func (c *Config) Keepalive() time.Duration {
	if c.KeepaliveSec == 0 {
		return c.NetworkTimeout() / 2
	}
	return time.Duration(c.KeepaliveSec) * time.Second
}
