package models

// ProxyStatus classifies a probed proxy endpoint.
type ProxyStatus string

const (
	ProxyActive   ProxyStatus = "active"
	ProxyInactive ProxyStatus = "inactive"
)

// Up reports whether the proxy was reachable on the last sweep.
func (s ProxyStatus) Up() bool {
	return s == ProxyActive
}

// ProxyEntry is one row of the prober's registry: a SOCKS5 endpoint with
// the credentials used for the authenticated round-trip.
type ProxyEntry struct {
	Address  string `json:"address"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}
