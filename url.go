package pooledredis

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// The defaults used for any ConnConfig field left empty. Applications which
// need to target something else should fill in ConnConfig explicitly.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 6379
)

// URLScheme is the only scheme ParseURL accepts.
const URLScheme = "redis"

// ConnConfig describes the redis instance a Client's Handles connect to.
type ConnConfig struct {
	// Host and Port default to DefaultHost and DefaultPort.
	Host string
	Port int

	// DB is the database index selected on each new Handle.
	DB int

	// Username and Password are used to AUTH each new Handle, if set.
	Username, Password string
}

func (cc ConnConfig) withDefaults() ConnConfig {
	if cc.Host == "" {
		cc.Host = DefaultHost
	}
	if cc.Port == 0 {
		cc.Port = DefaultPort
	}
	return cc
}

// Addr returns the host:port address of the redis instance.
func (cc ConnConfig) Addr() string {
	cc = cc.withDefaults()
	return net.JoinHostPort(cc.Host, strconv.Itoa(cc.Port))
}

// ParseURL parses a connection URL of the form:
//
//	redis://[[username:]password@]host[:port][/db]
//
// A single userinfo component is taken to be the password, so
// "redis://secret@host" authenticates with "secret". Anything left out takes
// its default, see ConnConfig.
//
// ParseURL returns an ErrConfiguration error if the URL can't be parsed, or if
// its scheme isn't "redis".
func ParseURL(rawurl string) (ConnConfig, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return ConnConfig{}, ErrConfiguration.Wrap(err, "parsing connection url")
	} else if u.Scheme != URLScheme {
		return ConnConfig{}, ErrConfiguration.New(
			"connection url must have scheme %q, got %q", URLScheme, u.Scheme,
		)
	}

	var cc ConnConfig
	if u.User != nil {
		if pass, ok := u.User.Password(); ok {
			cc.Username, cc.Password = u.User.Username(), pass
		} else {
			cc.Password = u.User.Username()
		}
	}

	cc.Host = u.Hostname()
	if portStr := u.Port(); portStr != "" {
		if cc.Port, err = strconv.Atoi(portStr); err != nil {
			return ConnConfig{}, ErrConfiguration.Wrap(err, "parsing port of connection url")
		}
	}

	if dbStr := strings.Trim(u.Path, "/"); dbStr != "" {
		if cc.DB, err = strconv.Atoi(dbStr); err != nil {
			return ConnConfig{}, ErrConfiguration.Wrap(err, "parsing database of connection url")
		}
	}

	return cc.withDefaults(), nil
}
