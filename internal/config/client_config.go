package config

import (
	"strings"
	"time"
)

const (
	apiBaseURLVar     = envPrefix + "API_BASE_URL"
	requestTimeoutVar = envPrefix + "REQUEST_TIMEOUT"
	refreshTimeoutVar = envPrefix + "REFRESH_TIMEOUT"
	logoutTimeoutVar  = envPrefix + "LOGOUT_TIMEOUT"
)

type Client struct {
	values Values
}

var _ ClientConfig = Client{}

func (c Client) GetAPIBaseURL() string {
	return strings.TrimRight(c.values.get(apiBaseURLVar, "http://localhost:3000/api/v1"), "/")
}

func (c Client) GetRequestTimeout() time.Duration {
	return c.values.getDuration(requestTimeoutVar, 10*time.Second)
}

// GetRefreshTimeout bounds a shared refresh call, which outlives the request that triggered it
func (c Client) GetRefreshTimeout() time.Duration {
	return c.values.getDuration(refreshTimeoutVar, 10*time.Second)
}

func (c Client) GetLogoutTimeout() time.Duration {
	return c.values.getDuration(logoutTimeoutVar, 3*time.Second)
}

func (Client) GetLoginPath() string {
	return "/login"
}

func (Client) GetHomePath() string {
	return "/"
}
