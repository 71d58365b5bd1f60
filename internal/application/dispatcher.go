package application

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"voice-phone/internal/domain"
)

const (
	unknownSpeech = "Sorry, I did not understand that command"
	helpSpeech    = "You can say call, text, volume up, volume down, mute, brightness, wifi, bluetooth, camera, flashlight, play music, lock phone, and many more"

	defaultContact = "contact"
	defaultApp     = "app"

	timeLayout = "3:04:05 PM"
	dateLayout = "1/2/2006"
)

type pattern struct {
	action  domain.Action
	match   func(text string) bool
	respond func(text string, now time.Time) domain.Response
}

// Dispatcher maps a normalized transcript to a mocked phone action. The
// pattern table is walked in order and the first match wins.
type Dispatcher struct {
	patterns []pattern
	now      func() time.Time
}

// NewDispatcher builds the dispatcher with the built-in pattern table. now
// is used by the time and date patterns; nil means time.Now.
func NewDispatcher(now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		patterns: phonePatterns(),
		now:      now,
	}
}

// Classify never fails: text no pattern matches resolves to ActionUnknown.
func (d *Dispatcher) Classify(text string) domain.Response {
	now := d.now()
	for _, p := range d.patterns {
		if p.match(text) {
			return p.respond(text, now)
		}
	}
	return domain.Response{
		Action: domain.ActionUnknown,
		Icon:   "❓",
		Label:  fmt.Sprintf(`Unknown command: "%s"`, text),
		Speech: unknownSpeech,
	}
}

// Patterns lists the actions of the pattern table in match order.
func (d *Dispatcher) Patterns() []domain.Action {
	actions := make([]domain.Action, 0, len(d.patterns))
	for _, p := range d.patterns {
		actions = append(actions, p.action)
	}
	return actions
}

func anyOf(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return true
			}
		}
		return false
	}
}

func allOf(keywords ...string) func(string) bool {
	return func(text string) bool {
		for _, k := range keywords {
			if !strings.Contains(text, k) {
				return false
			}
		}
		return true
	}
}

// stripper removes every occurrence of the keywords, including inside
// other words, and trims what is left.
func stripper(keywords ...string) func(string) string {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = regexp.QuoteMeta(k)
	}
	re := regexp.MustCompile("(?i)" + strings.Join(quoted, "|"))
	return func(text string) string {
		return strings.TrimSpace(re.ReplaceAllString(text, ""))
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// says builds a pattern whose label is also the spoken confirmation.
func says(action domain.Action, match func(string) bool, icon, label string) pattern {
	return replies(action, match, icon, label, label)
}

func replies(action domain.Action, match func(string) bool, icon, label, speech string) pattern {
	return pattern{
		action: action,
		match:  match,
		respond: func(string, time.Time) domain.Response {
			return domain.Response{Action: action, Icon: icon, Label: label, Speech: speech}
		},
	}
}

func phonePatterns() []pattern {
	contactFromCall := stripper("call", "dial")
	contactFromMessage := stripper("text", "message", "send")
	appName := stripper("open", "app")
	query := stripper("search", "look up", "for")
	destination := stripper("navigate", "directions", "to")

	return []pattern{
		{
			action: domain.ActionCall,
			match:  anyOf("call", "dial"),
			respond: func(text string, _ time.Time) domain.Response {
				contact := orDefault(contactFromCall(text), defaultContact)
				msg := "Calling " + contact
				return domain.Response{Action: domain.ActionCall, Icon: "📞", Label: msg, Speech: msg}
			},
		},
		{
			action: domain.ActionMessage,
			match:  anyOf("text", "message"),
			respond: func(text string, _ time.Time) domain.Response {
				contact := orDefault(contactFromMessage(text), defaultContact)
				msg := "Opening messages for " + contact
				return domain.Response{Action: domain.ActionMessage, Icon: "💬", Label: msg, Speech: msg}
			},
		},
		says(domain.ActionVolumeUp, anyOf("volume up", "increase volume"), "🔊", "Increasing volume"),
		says(domain.ActionVolumeDown, anyOf("volume down", "decrease volume"), "🔉", "Decreasing volume"),
		says(domain.ActionMute, anyOf("mute", "silent"), "🔇", "Muting phone"),
		says(domain.ActionUnmute, anyOf("unmute"), "🔔", "Unmuting phone"),
		says(domain.ActionBrightnessUp, anyOf("brightness up", "increase brightness"), "☀️", "Increasing brightness"),
		says(domain.ActionBrightnessDown, anyOf("brightness down", "decrease brightness"), "🌙", "Decreasing brightness"),
		says(domain.ActionWifiOn, anyOf("wifi on", "enable wifi"), "📶", "Enabling WiFi"),
		says(domain.ActionWifiOff, anyOf("wifi off", "disable wifi"), "📵", "Disabling WiFi"),
		says(domain.ActionBluetoothOn, anyOf("bluetooth on", "enable bluetooth"), "🔵", "Enabling Bluetooth"),
		says(domain.ActionBluetoothOff, anyOf("bluetooth off", "disable bluetooth"), "⚫", "Disabling Bluetooth"),
		says(domain.ActionCamera, anyOf("camera", "take photo", "take picture"), "📸", "Opening camera"),
		says(domain.ActionFlashlightOn, anyOf("flashlight on", "turn on flashlight"), "🔦", "Turning on flashlight"),
		says(domain.ActionFlashlightOff, anyOf("flashlight off", "turn off flashlight"), "💡", "Turning off flashlight"),
		{
			action: domain.ActionOpenApp,
			match:  allOf("open", "app"),
			respond: func(text string, _ time.Time) domain.Response {
				msg := "Opening " + orDefault(appName(text), defaultApp)
				return domain.Response{Action: domain.ActionOpenApp, Icon: "📱", Label: msg, Speech: msg}
			},
		},
		says(domain.ActionPlayMusic, anyOf("play music", "play song"), "🎵", "Playing music"),
		says(domain.ActionPauseMusic, anyOf("pause music", "stop music"), "⏸️", "Pausing music"),
		replies(domain.ActionNextSong, anyOf("next song", "skip"), "⏭️", "Next song", "Playing next song"),
		replies(domain.ActionPreviousSong, anyOf("previous song", "go back"), "⏮️", "Previous song", "Playing previous song"),
		says(domain.ActionLockPhone, anyOf("lock phone", "lock screen"), "🔒", "Locking phone"),
		says(domain.ActionAirplaneModeOn, anyOf("airplane mode on", "enable airplane mode"), "✈️", "Enabling airplane mode"),
		says(domain.ActionAirplaneModeOff, anyOf("airplane mode off", "disable airplane mode"), "📡", "Disabling airplane mode"),
		replies(domain.ActionBattery, anyOf("battery", "charge"), "🔋", "Checking battery status", "Battery is at 75 percent"),
		{
			action: domain.ActionTime,
			match:  anyOf("time"),
			respond: func(_ string, now time.Time) domain.Response {
				clock := now.Format(timeLayout)
				return domain.Response{
					Action: domain.ActionTime,
					Icon:   "⏰",
					Label:  "Current time: " + clock,
					Speech: "The time is " + clock,
				}
			},
		},
		{
			action: domain.ActionDate,
			match:  anyOf("date"),
			respond: func(_ string, now time.Time) domain.Response {
				day := now.Format(dateLayout)
				return domain.Response{
					Action: domain.ActionDate,
					Icon:   "📅",
					Label:  "Current date: " + day,
					Speech: "Today is " + day,
				}
			},
		},
		says(domain.ActionSetAlarm, allOf("alarm", "set"), "⏰", "Setting alarm"),
		says(domain.ActionTimer, anyOf("timer"), "⏲️", "Starting timer"),
		says(domain.ActionReminder, anyOf("reminder"), "🔔", "Creating reminder"),
		{
			action: domain.ActionSearch,
			match:  anyOf("search", "look up"),
			respond: func(text string, _ time.Time) domain.Response {
				q := query(text)
				return domain.Response{
					Action: domain.ActionSearch,
					Icon:   "🔍",
					Label:  "Searching for: " + q,
					Speech: "Searching for " + q,
				}
			},
		},
		replies(domain.ActionWeather, anyOf("weather"), "🌤️", "Checking weather", "The weather is sunny and 72 degrees"),
		{
			action: domain.ActionNavigate,
			match:  anyOf("navigate", "directions"),
			respond: func(text string, _ time.Time) domain.Response {
				msg := "Getting directions to " + destination(text)
				return domain.Response{Action: domain.ActionNavigate, Icon: "🗺️", Label: msg, Speech: msg}
			},
		},
		says(domain.ActionScreenshot, anyOf("screenshot"), "📷", "Taking screenshot"),
		says(domain.ActionHome, anyOf("home"), "🏠", "Going to home screen"),
		says(domain.ActionBack, anyOf("back"), "⬅️", "Going back"),
		says(domain.ActionRecentApps, anyOf("recent apps", "recent applications"), "📋", "Opening recent apps"),
		says(domain.ActionSettings, anyOf("settings"), "⚙️", "Opening settings"),
		says(domain.ActionContacts, anyOf("contacts"), "👥", "Opening contacts"),
		says(domain.ActionCalculator, anyOf("calculator"), "🔢", "Opening calculator"),
		says(domain.ActionCalendar, anyOf("calendar"), "📆", "Opening calendar"),
		says(domain.ActionEmail, anyOf("email", "mail"), "📧", "Opening email"),
		says(domain.ActionNotes, anyOf("notes"), "📝", "Opening notes"),
		says(domain.ActionMaps, anyOf("maps"), "🗺️", "Opening maps"),
		says(domain.ActionBrowser, anyOf("browser", "internet"), "🌐", "Opening browser"),
		says(domain.ActionGallery, anyOf("gallery", "photos"), "🖼️", "Opening gallery"),
		replies(domain.ActionHelp, anyOf("help"), "❓", "Available commands displayed below", helpSpeech),
	}
}
