package config

var defaultServer = ServerConfig{
	Addr:         "localhost:8080",
	RenderOnExit: false,
}

var defaultClient = ClientConfig{
	URL:            "ws://localhost:8080/sync",
	BufferTimeMs:   40,
	EditIntervalMs: 1000,
}

var defaultLog = LogConfig{
	Format: "text",
}

func Default() *Config {
	return &Config{
		Server: defaultServer,
		Client: defaultClient,
		Log:    defaultLog,
	}
}

func (c *ServerConfig) PopulateDefaults() {
	if c.Addr == "" {
		c.Addr = defaultServer.Addr
	}
}

func (c *ClientConfig) PopulateDefaults() {
	if c.URL == "" {
		c.URL = defaultClient.URL
	}

	if c.BufferTimeMs == 0 {
		c.BufferTimeMs = defaultClient.BufferTimeMs
	}

	if c.EditIntervalMs == 0 {
		c.EditIntervalMs = defaultClient.EditIntervalMs
	}
}

func (c *LogConfig) PopulateDefaults() {
	if c.Format == "" {
		c.Format = defaultLog.Format
	}
}

func (c *Config) PopulateDefaults() {
	c.Server.PopulateDefaults()
	c.Client.PopulateDefaults()
	c.Log.PopulateDefaults()
}
