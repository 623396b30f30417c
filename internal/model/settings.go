package model

// ShowSettings carries the show-wide preferences that travel inside the
// show file.
type ShowSettings struct {
	General  GeneralSettings  `json:"general"`
	Hotkey   HotkeySettings   `json:"hotkey"`
	Template TemplateSettings `json:"template"`
}

// DefaultShowSettings returns the defaults for a newly created show.
func DefaultShowSettings() ShowSettings {
	return ShowSettings{
		General:  GeneralSettings{LockCursorToSelection: true},
		Hotkey: HotkeySettings{
			Go:      "Space",
			Load:    "L",
			Stop:    "Backspace",
			StopAll: "Escape",
		},
		Template: DefaultTemplateSettings(),
	}
}

// GeneralSettings holds miscellaneous operator preferences.
type GeneralSettings struct {
	LockCursorToSelection bool `json:"lockCursorToSelection"`
}

// HotkeySettings maps named actions to keyboard shortcuts.
type HotkeySettings struct {
	Go      string `json:"go"`
	Load    string `json:"load"`
	Stop    string `json:"stop"`
	StopAll string `json:"stopAll"`
}

// TemplateSettings holds the default cue shape the UI seeds a "new cue"
// dialog with for each cue kind.
type TemplateSettings struct {
	Audio *Cue `json:"audio,omitempty"`
	Wait  *Cue `json:"wait,omitempty"`
}

// DefaultTemplateSettings returns blank Audio/Wait cue templates.
func DefaultTemplateSettings() TemplateSettings {
	return TemplateSettings{
		Audio: &Cue{
			Sequence: DoNotContinue(),
			Params: AudioParam{
				SoundType: SoundStatic,
			},
		},
		Wait: &Cue{
			Sequence: DoNotContinue(),
			Params:   WaitParam{Duration: 5},
		},
	}
}
