// internal/config/config.go
package config

// Config is the daemon configuration file.
type Config struct {
	Version   string          `yaml:"version" toml:"version"`
	Connector ConnectorConfig `yaml:"connector" toml:"connector"`
	Network   NetworkConfig   `yaml:"network" toml:"network"`
	Protocol  ProtocolConfig  `yaml:"protocol" toml:"protocol"`
	Poll      PollConfig      `yaml:"poll" toml:"poll"`

	// Modbus export of poll data and connector status (optional, opt-in)
	Export *ExportConfig `yaml:"export" toml:"export"`
}

// ---- CONNECTOR ----

type ConnectorConfig struct {
	Type ConnectorTypeConfig `yaml:"type" toml:"type"`

	// Milliseconds. Unset keeps the connector default; 0 purges finished
	// requests on the next query.
	CallRequestsMaxIdleTime *int `yaml:"callRequestsMaxIdleTime" toml:"callRequestsMaxIdleTime"`

	// Milliseconds, used by the synchronous device helpers.
	DefaultWaitingTimeout int `yaml:"defaultWaitingTimeout" toml:"defaultWaitingTimeout"`

	AsyncOffload bool `yaml:"asyncOffload" toml:"asyncOffload"`
}

type ConnectorTypeConfig struct {
	ResponseWaiting ResponseWaitingConfig `yaml:"responseWaiting" toml:"responseWaiting"`
}

// ResponseWaitingConfig values are milliseconds except MaxSendAttempts.
// Zero means "not set".
type ResponseWaitingConfig struct {
	MaxSendAttempts  int `yaml:"maxSendAttempts" toml:"maxSendAttempts"`
	ResponseTimeout  int `yaml:"responseTimeout" toml:"responseTimeout"`
	AttemptPause     int `yaml:"attemptPause" toml:"attemptPause"`
	BetweenSendPause int `yaml:"betweenSendPause" toml:"betweenSendPause"`
}

// ---- NETWORK ----

type NetworkConfig struct {
	ID   string `yaml:"id" toml:"id"`
	Type string `yaml:"type" toml:"type"` // serial | udp

	Serial SerialConfig `yaml:"serial" toml:"serial"`
	UDP    UDPConfig    `yaml:"udp" toml:"udp"`
}

type SerialConfig struct {
	Address       string `yaml:"address" toml:"address"`
	BaudRate      int    `yaml:"baud_rate" toml:"baud_rate"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms" toml:"read_timeout_ms"`
}

type UDPConfig struct {
	RemoteAddr string `yaml:"remote_addr" toml:"remote_addr"`
	LocalAddr  string `yaml:"local_addr" toml:"local_addr"`
}

// ---- PROTOCOL ----

type ProtocolConfig struct {
	HWProfile *uint16 `yaml:"hwProfile" toml:"hwProfile"`

	// Extra interface name -> PNUM entries on top of the standard table.
	Peripherals map[string]uint8 `yaml:"peripherals" toml:"peripherals"`

	// Milliseconds.
	MaxRequestDuration int `yaml:"maxRequestDuration" toml:"maxRequestDuration"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int          `yaml:"interval_ms" toml:"interval_ms"`
	Reads      []ReadConfig `yaml:"reads" toml:"reads"`
}

// ReadConfig is one call issued every poll cycle.
type ReadConfig struct {
	Node      string `yaml:"node" toml:"node"`
	Interface string `yaml:"interface" toml:"interface"`
	Method    string `yaml:"method" toml:"method"`
	Data      []byte `yaml:"data" toml:"data"`

	// Export geometry (optional): holding registers receiving the
	// response data, two bytes per register.
	Register *uint16 `yaml:"register" toml:"register"`
	Quantity uint16  `yaml:"quantity" toml:"quantity"`
}

// ---- EXPORT ----

type ExportConfig struct {
	Endpoint  string `yaml:"endpoint" toml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id" toml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms" toml:"timeout_ms"`

	// Connector status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot" toml:"status_slot"`
	DeviceName string  `yaml:"device_name" toml:"device_name"`
}
