package config

import (
	"fmt"
	"net/url"
)

var knownLogFormats = map[string]bool{"text": true, "json": true}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		return ErrMissingAddr
	}
	return nil
}

func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, c.URL)
	}

	if c.BufferTimeMs <= 0 {
		return ErrInvalidBufferTime
	}

	if c.EditIntervalMs <= 0 {
		return ErrInvalidEditInterval
	}
	return nil
}

func (c *LogConfig) Validate() error {
	if !knownLogFormats[c.Format] {
		return fmt.Errorf("%w: %q", ErrUnknownLogFormat, c.Format)
	}
	return nil
}
