package domain

import (
	"strings"
	"time"
)

type Action string

const (
	ActionCall            Action = "call"
	ActionMessage         Action = "message"
	ActionVolumeUp        Action = "volume_up"
	ActionVolumeDown      Action = "volume_down"
	ActionMute            Action = "mute"
	ActionUnmute          Action = "unmute"
	ActionBrightnessUp    Action = "brightness_up"
	ActionBrightnessDown  Action = "brightness_down"
	ActionWifiOn          Action = "wifi_on"
	ActionWifiOff         Action = "wifi_off"
	ActionBluetoothOn     Action = "bluetooth_on"
	ActionBluetoothOff    Action = "bluetooth_off"
	ActionCamera          Action = "camera"
	ActionFlashlightOn    Action = "flashlight_on"
	ActionFlashlightOff   Action = "flashlight_off"
	ActionOpenApp         Action = "open_app"
	ActionPlayMusic       Action = "play_music"
	ActionPauseMusic      Action = "pause_music"
	ActionNextSong        Action = "next_song"
	ActionPreviousSong    Action = "previous_song"
	ActionLockPhone       Action = "lock_phone"
	ActionAirplaneModeOn  Action = "airplane_mode_on"
	ActionAirplaneModeOff Action = "airplane_mode_off"
	ActionBattery         Action = "battery"
	ActionTime            Action = "time"
	ActionDate            Action = "date"
	ActionSetAlarm        Action = "set_alarm"
	ActionTimer           Action = "timer"
	ActionReminder        Action = "reminder"
	ActionSearch          Action = "search"
	ActionWeather         Action = "weather"
	ActionNavigate        Action = "navigate"
	ActionScreenshot      Action = "screenshot"
	ActionHome            Action = "home"
	ActionBack            Action = "back"
	ActionRecentApps      Action = "recent_apps"
	ActionSettings        Action = "settings"
	ActionContacts        Action = "contacts"
	ActionCalculator      Action = "calculator"
	ActionCalendar        Action = "calendar"
	ActionEmail           Action = "email"
	ActionNotes           Action = "notes"
	ActionMaps            Action = "maps"
	ActionBrowser         Action = "browser"
	ActionGallery         Action = "gallery"
	ActionHelp            Action = "help"
	ActionUnknown         Action = "unknown"
)

// Response is what a transcript resolves to: a display label and the
// sentence spoken back to the user.
type Response struct {
	Action Action `json:"action"`
	Icon   string `json:"icon"`
	Label  string `json:"label"`
	Speech string `json:"speech"`
}

// Display is the label prefixed with its icon, as shown to the user.
func (r Response) Display() string {
	if r.Icon == "" {
		return r.Label
	}
	return r.Icon + " " + r.Label
}

// CommandRecord is one entry of the command history. Records are never
// modified after they are created.
type CommandRecord struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Action    Action    `json:"action"`
	Icon      string    `json:"icon"`
	Label     string    `json:"label"`
	Speech    string    `json:"speech"`
	Timestamp time.Time `json:"timestamp"`
}

// Normalize folds a transcript into the form the dispatcher matches on.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Utterance is a speech synthesis request.
type Utterance struct {
	Text   string
	Rate   float64
	Pitch  float64
	Volume float64
}

func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Rate: 1.0, Pitch: 1.0, Volume: 1.0}
}
