package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	apexDomainVar = "MAIN_DOMAIN"
	appURLVar     = "APP_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Collab Meet")
}

func (EnvVars) GetEnv() string {
	env := GetEnv(envVar, "")
	if env == "" {
		return "DEV"
	}
	return strings.ToUpper(env)
}

func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == "PROD"
}

// GetApexDomain returns the registrable domain shared by the collab
// subdomains (e.g. "datafabdevelopment.com"). Empty in local development.
func (EnvVars) GetApexDomain() string {
	return GetEnv(apexDomainVar, "")
}

// GetAppURL returns the public URL the auth callback redirects back to.
func (e EnvVars) GetAppURL() string {
	if !e.IsProduction() {
		return GetEnv(appURLVar, "http://localhost:3000")
	}
	return GetEnv(appURLVar, "")
}

func GetEnv(name, defaultValue string) string {
	value := os.Getenv(name)
	if value == "" {
		value = fileValue(name)
	}
	if value == "" {
		return defaultValue
	}
	return value
}
