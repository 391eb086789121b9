package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validViper() *viper.Viper {
	v := viper.New()
	v.Set("archive.base_url", "https://archive.test")
	v.Set("archive.start_url", "https://archive.test/fulltext")
	v.Set("archive.user_agent", "test-agent")
	v.Set("crawler.workers", 4)
	v.Set("crawler.page_timeout", "15s")
	v.Set("crawler.page_delay_min", "2s")
	v.Set("crawler.page_delay_max", "3s")
	v.Set("download.timeout", "60s")
	v.Set("download.rate_per_second", 2.0)
	return v
}

func TestLoad(t *testing.T) {
	v := validViper()
	v.Set("data.issues_csv", "out/issues.csv")
	v.Set("server.enabled", true)
	v.Set("server.addr", ":9090")

	s, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://archive.test", s.Archive.BaseURL)
	assert.Equal(t, "out/issues.csv", s.Data.IssuesCSV)
	assert.Equal(t, 4, s.Crawler.Workers)
	assert.Equal(t, 15*time.Second, s.Crawler.PageTimeout)
	assert.Equal(t, ":9090", s.Server.Addr)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(*viper.Viper)
	}{
		{"missing base url", func(v *viper.Viper) { v.Set("archive.base_url", "") }},
		{"missing user agent", func(v *viper.Viper) { v.Set("archive.user_agent", "") }},
		{"zero workers", func(v *viper.Viper) { v.Set("crawler.workers", 0) }},
		{"inverted page delays", func(v *viper.Viper) { v.Set("crawler.page_delay_max", "1s") }},
		{"zero download timeout", func(v *viper.Viper) { v.Set("download.timeout", "0s") }},
		{"server enabled without addr", func(v *viper.Viper) {
			v.Set("server.enabled", true)
			v.Set("server.addr", "")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := validViper()
			tc.mutate(v)
			_, err := Load(v)
			require.Error(t, err)
		})
	}
}
