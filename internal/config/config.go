package config

type Config interface {
	EnvConfig
	AuthConfig
	MeetConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsProduction() bool
	GetApexDomain() string
	GetAppURL() string
}

// AuthConfig describes the external auth provider the front end delegates to.
type AuthConfig interface {
	GetAuthIssuerURL() string
	GetAuthClientID() string
	GetAuthClientSecret() string
	GetAuthProjectRef() string
}

// MeetConfig describes the hosted conferencing service that owns the rooms.
type MeetConfig interface {
	GetMeetScriptURL() string
	GetMeetDomain() string
	GetMeetRoomPrefix() string
}

type mainConfig struct {
	EnvVars
	Auth
	Meet
}

func New() Config {
	loadFileOverlay()
	return mainConfig{}
}
