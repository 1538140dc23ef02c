package config

type Meet struct{}

var _ MeetConfig = Meet{}

// GetMeetScriptURL returns the bootstrap URL of the hosted conferencing
// widget. Local deployments run the conferencing stack on 8443.
func (m Meet) GetMeetScriptURL() string {
	env := EnvVars{}
	if !env.IsProduction() {
		return GetEnv("MEET_SCRIPT_URL", "https://localhost:8443/external_api.js")
	}
	return GetEnv("MEET_SCRIPT_URL", "https://meet."+env.GetApexDomain()+"/external_api.js")
}

// GetMeetDomain returns the signaling domain handed to the widget constructor.
func (Meet) GetMeetDomain() string {
	domain := GetEnv("MEET_DOMAIN", "")
	if domain == "" {
		apex := EnvVars{}.GetApexDomain()
		if apex != "" {
			return "meet." + apex
		}
		return "localhost:8443"
	}
	return domain
}

// GetMeetRoomPrefix returns an optional prefix prepended to every room name.
func (Meet) GetMeetRoomPrefix() string {
	return GetEnv("MEET_ROOM_PREFIX", "")
}
