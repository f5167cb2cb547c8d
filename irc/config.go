// Copyright (c) 2012-2014 Jeremy Latt
// Copyright (c) 2014-2015 Edmund Huber
// Copyright (c) 2016-2017 Daniel Oaks <daniel@danieloaks.net>
// released under the MIT license

package irc

import (
	"fmt"
	"os"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v2"

	"github.com/veilchat/veil/irc/encryption"
	"github.com/veilchat/veil/irc/logger"
)

const (
	defaultPlainPort = 6667
	defaultTLSPort   = 6697

	defaultRegisterTimeout = time.Minute
	defaultReconnectDelay  = 30 * time.Second

	// tags plus message body, as in the ircv3 line length discussions
	defaultReadQBytes = 8192 + 1024
)

// TLSConfig governs the client side of a TLS connection.
type TLSConfig struct {
	Enabled            bool
	InsecureSkipVerify bool `yaml:"insecure-skip-verify"`
}

// ServerConfig describes one IRC network we may connect to.
type ServerConfig struct {
	// Name is the label used in the UI and in event routing; it defaults
	// to Host and must be unique across the config.
	Name string
	Host string
	Port int
	TLS  TLSConfig
	// WebsocketURL, if set, overrides Host/Port and connects over a
	// websocket (wss://... or ws://...).
	WebsocketURL string `yaml:"websocket-url"`

	Nick     string
	AltNick  string `yaml:"alt-nick"`
	Username string
	Realname string
	// Password is sent as PASS before registration, when present.
	Password string

	// AutoJoin channels are joined once the server signals the end of
	// the MOTD.
	AutoJoin []string `yaml:"autojoin"`

	AutoConnect   bool `yaml:"autoconnect"`
	AutoReconnect bool `yaml:"autoreconnect"`

	ReconnectDelayString  string        `yaml:"reconnect-delay"`
	RegisterTimeoutString string        `yaml:"register-timeout"`
	ReconnectDelay        time.Duration `yaml:"-"`
	RegisterTimeout       time.Duration `yaml:"-"`

	readQBytes int
}

func (sc *ServerConfig) maxReadQBytes() int {
	if sc.readQBytes > 0 {
		return sc.readQBytes
	}
	return defaultReadQBytes
}

// Config defines the overall configuration.
type Config struct {
	Filename string `yaml:"-"`

	Servers []ServerConfig

	Datastore struct {
		Path string
	}

	Encryption struct {
		// Iterations is the PBKDF2 work factor for newly derived keys.
		Iterations int
	}

	Limits struct {
		ReadQString string `yaml:"readq"`
	}

	Logging []logger.LoggingConfig
}

// Server returns the server config with the given name, or nil.
func (config *Config) Server(name string) *ServerConfig {
	for i := range config.Servers {
		if config.Servers[i].Name == name {
			return &config.Servers[i]
		}
	}
	return nil
}

// LoadConfig loads the given YAML configuration file.
func LoadConfig(filename string) (config *Config, err error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}

	config.Filename = filename

	if config.Datastore.Path == "" {
		return nil, ErrDatastorePathMissing
	}
	if len(config.Servers) == 0 {
		return nil, ErrNoServersDefined
	}

	if config.Encryption.Iterations == 0 {
		config.Encryption.Iterations = encryption.DefaultIterations
	}

	readQBytes := defaultReadQBytes
	if config.Limits.ReadQString != "" {
		readQ, err := bytefmt.ToBytes(config.Limits.ReadQString)
		if err != nil {
			return nil, fmt.Errorf("Could not parse readq size (make sure it only contains whole numbers): %s", err.Error())
		}
		readQBytes = int(readQ)
	}

	// process servers
	seenNames := make(map[string]bool)
	for i := range config.Servers {
		server := &config.Servers[i]
		if server.Host == "" && server.WebsocketURL == "" {
			return nil, ErrServerHostMissing
		}
		if server.Nick == "" {
			return nil, ErrNickMissing
		}
		if server.Name == "" {
			server.Name = server.Host
		}
		if seenNames[server.Name] {
			return nil, fmt.Errorf("Duplicate server name [%s]", server.Name)
		}
		seenNames[server.Name] = true

		if server.Port == 0 {
			if server.TLS.Enabled {
				server.Port = defaultTLSPort
			} else {
				server.Port = defaultPlainPort
			}
		}
		if server.AltNick == "" {
			server.AltNick = server.Nick + "_"
		}
		if server.Username == "" {
			server.Username = server.Nick
		}
		if server.Realname == "" {
			server.Realname = server.Nick
		}

		server.ReconnectDelay = defaultReconnectDelay
		if server.ReconnectDelayString != "" {
			server.ReconnectDelay, err = time.ParseDuration(server.ReconnectDelayString)
			if err != nil {
				return nil, fmt.Errorf("Could not parse reconnect-delay: %s", err.Error())
			}
		}
		server.RegisterTimeout = defaultRegisterTimeout
		if server.RegisterTimeoutString != "" {
			server.RegisterTimeout, err = time.ParseDuration(server.RegisterTimeoutString)
			if err != nil {
				return nil, fmt.Errorf("Could not parse register-timeout: %s", err.Error())
			}
		}

		server.readQBytes = readQBytes
	}

	// process logging
	var newLogConfigs []logger.LoggingConfig
	for _, logConfig := range config.Logging {
		// methods
		methods := make(map[string]bool)
		for _, method := range strings.Split(logConfig.Method, " ") {
			if len(method) > 0 {
				methods[strings.ToLower(method)] = true
			}
		}
		if methods["file"] && logConfig.Filename == "" {
			return nil, ErrLoggerFilenameMissing
		}
		logConfig.MethodFile = methods["file"]
		logConfig.MethodStdout = methods["stdout"]
		logConfig.MethodStderr = methods["stderr"]

		// levels
		level, exists := logger.LogLevelNames[strings.ToLower(logConfig.LevelString)]
		if !exists {
			return nil, fmt.Errorf("Could not translate log level [%s]", logConfig.LevelString)
		}
		logConfig.Level = level

		// types
		for _, typeStr := range strings.Split(logConfig.TypeString, " ") {
			if len(typeStr) == 0 {
				continue
			}
			if typeStr == "-" {
				return nil, ErrLoggerExcludeEmpty
			}
			if typeStr[0] == '-' {
				typeStr = typeStr[1:]
				logConfig.ExcludedTypes = append(logConfig.ExcludedTypes, typeStr)
			} else {
				logConfig.Types = append(logConfig.Types, typeStr)
			}
		}
		if len(logConfig.Types) < 1 {
			return nil, ErrLoggerHasNoTypes
		}

		newLogConfigs = append(newLogConfigs, logConfig)
	}
	config.Logging = newLogConfigs

	return config, nil
}
