package pooledredis

import (
	. "testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *T) {
	tests := []struct {
		url string
		exp ConnConfig
	}{
		{
			url: "redis://pw@host:1234/2",
			exp: ConnConfig{Host: "host", Port: 1234, DB: 2, Password: "pw"},
		},
		{
			url: "redis://host",
			exp: ConnConfig{Host: "host", Port: DefaultPort},
		},
		{
			url: "redis://",
			exp: ConnConfig{Host: DefaultHost, Port: DefaultPort},
		},
		{
			url: "redis://user:pw@127.0.0.1:6380/",
			exp: ConnConfig{Host: "127.0.0.1", Port: 6380, Username: "user", Password: "pw"},
		},
		{
			url: "redis://[::1]:7000/15",
			exp: ConnConfig{Host: "::1", Port: 7000, DB: 15},
		},
	}

	for _, test := range tests {
		t.Run(test.url, func(t *T) {
			cc, err := ParseURL(test.url)
			require.NoError(t, err)
			assert.Equal(t, test.exp, cc)
		})
	}
}

func TestParseURLErrors(t *T) {
	for _, u := range []string{
		"http://host:1234",
		"host:1234",
		"redis://host:port",
		"redis://host/db",
		"redis://%zz",
	} {
		_, err := ParseURL(u)
		assert.True(t, IsConfigurationError(err), "url:%q err:%v", u, err)
	}
}

func TestConnConfigAddr(t *T) {
	assert.Equal(t, "127.0.0.1:6379", ConnConfig{}.Addr())
	assert.Equal(t, "example.com:6380", ConnConfig{Host: "example.com", Port: 6380}.Addr())
	assert.Equal(t, "[::1]:6379", ConnConfig{Host: "::1"}.Addr())
}
