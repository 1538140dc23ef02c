package widget

// UserInfo is the identity handed to the widget for display purposes.
type UserInfo struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Options is the configuration object the widget constructor takes.
type Options struct {
	RoomName        string                 `json:"roomName"`
	Width           string                 `json:"width"`
	Height          string                 `json:"height"`
	ParentNode      string                 `json:"parentNode"`
	UserInfo        UserInfo               `json:"userInfo"`
	Config          map[string]interface{} `json:"configOverwrite"`
	InterfaceConfig map[string]interface{} `json:"interfaceConfigOverwrite"`
}

// toolbarButtons is the fixed button set shown in meetings.
var toolbarButtons = []string{
	"microphone",
	"camera",
	"desktop",
	"hangup",
	"chat",
	"participants-pane",
	"tileview",
	"raisehand",
	"videoquality",
	"filmstrip",
	"security",
}

// BuildOptions merges the fixed meeting policy with the room and the
// resolved user identity. Policy highlights: audio starts muted, video
// does not, the lobby is on with auto-knock so the external service owns
// admission, and a display name is required.
func BuildOptions(roomPrefix, roomID string, user UserInfo) Options {
	return Options{
		RoomName:   roomPrefix + roomID,
		Width:      "100%",
		Height:     "100%",
		ParentNode: "#meetContainer",
		UserInfo:   user,
		Config: map[string]interface{}{
			"prejoinPageEnabled":  true,
			"startWithAudioMuted": true,
			"startWithVideoMuted": false,
			"disableDeepLinking":  true,
			"requireDisplayName":  true,
			"enableClosePage":     false,
			"enableInsecureRoomNameWarning": false,
			"toolbarButtons":                toolbarButtons,
			"lobby": map[string]interface{}{
				"enabled":   true,
				"autoKnock": true,
			},
			"enableLobbyChat": false,
			"participantsPane": map[string]interface{}{
				"enabled": true,
			},
			"moderator": map[string]interface{}{
				"enabled": true,
			},
			"watermark": map[string]interface{}{
				"enabled": false,
			},
		},
		InterfaceConfig: map[string]interface{}{
			"TOOLBAR_BUTTONS":               toolbarButtons,
			"TOOLBAR_ALWAYS_VISIBLE":        true,
			"SHOW_CHROME_EXTENSION_BANNER":  false,
		},
	}
}
