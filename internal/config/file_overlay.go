package config

import (
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const configFileVar = "CONFIG_FILE"

// fileOverlay holds values read from an optional YAML config file.
// Environment variables always win; the file only fills gaps, which keeps
// local development out of long export lists.
type fileOverlay struct {
	Port       string `yaml:"port"`
	AppName    string `yaml:"app_name"`
	Env        string `yaml:"env"`
	ApexDomain string `yaml:"apex_domain"`
	AppURL     string `yaml:"app_url"`

	Auth struct {
		IssuerURL    string `yaml:"issuer_url"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		ProjectRef   string `yaml:"project_ref"`
	} `yaml:"auth"`

	Meet struct {
		ScriptURL  string `yaml:"script_url"`
		Domain     string `yaml:"domain"`
		RoomPrefix string `yaml:"room_prefix"`
	} `yaml:"meet"`
}

var (
	overlayOnce   sync.Once
	overlayValues map[string]string
)

func loadFileOverlay() {
	overlayOnce.Do(func() {
		overlayValues = map[string]string{}
		path := os.Getenv(configFileVar)
		if path == "" {
			return
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file unreadable, using environment only")
			return
		}
		var overlay fileOverlay
		if err := yaml.Unmarshal(content, &overlay); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config file invalid, using environment only")
			return
		}
		overlayValues = map[string]string{
			portEnvVar:         overlay.Port,
			appNameVar:         overlay.AppName,
			envVar:             overlay.Env,
			apexDomainVar:      overlay.ApexDomain,
			appURLVar:          overlay.AppURL,
			"AUTH_ISSUER_URL":  overlay.Auth.IssuerURL,
			"AUTH_CLIENT_ID":   overlay.Auth.ClientID,
			"AUTH_CLIENT_SECRET": overlay.Auth.ClientSecret,
			"AUTH_PROJECT_REF": overlay.Auth.ProjectRef,
			"MEET_SCRIPT_URL":  overlay.Meet.ScriptURL,
			"MEET_DOMAIN":      overlay.Meet.Domain,
			"MEET_ROOM_PREFIX": overlay.Meet.RoomPrefix,
		}
	})
}

func fileValue(name string) string {
	if overlayValues == nil {
		return ""
	}
	return overlayValues[name]
}
