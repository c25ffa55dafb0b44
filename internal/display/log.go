package display

import (
	"airmonitor/internal/logger"
	"airmonitor/internal/models"
)

// LogRenderer writes frames to the structured log. Screen switches and welcome
// lines are logged at info level, sensor frames at debug level.
type LogRenderer struct {
	log *logger.Logger

	screen  string
	welcome int
}

func NewLogRenderer(log *logger.Logger) *LogRenderer {
	if log == nil {
		log = logger.Nop()
	}
	return &LogRenderer{log: log}
}

// Render is only called from Panel.Refresh, which runs on the main loop.
func (r *LogRenderer) Render(s models.DisplaySnapshot) {
	if s.Screen != r.screen {
		r.log.Infow("display_screen", "screen", s.Screen, "brightness", s.Brightness, "inverted", s.ColorsInverted)
		r.screen = s.Screen
	}
	if len(s.WelcomeMessages) < r.welcome {
		r.welcome = 0
	}
	for _, msg := range s.WelcomeMessages[r.welcome:] {
		r.log.Infow("display_welcome", "msg", msg)
	}
	r.welcome = len(s.WelcomeMessages)

	if s.Screen == models.ScreenMain {
		r.log.Debugw("display_frame",
			"frame", s.Frame,
			"main", s.Panel.MainValue,
			"humidity", s.Panel.Humidity,
			"temperature", s.Panel.Temperature,
			"battery", s.Panel.BatteryPct,
			"rssi", s.Panel.RSSI,
			"wifi", s.Flags.WifiConnected,
			"sensors_ok", s.Flags.SensorsOK,
			"client", s.Flags.ConfigClientConnected,
		)
	}
}
