package importing

import (
	"github.com/hauke96/sigolo/v2"
)

// Progress receives coarse advisory updates while an Import runs. Callers
// may observe progress but cannot abort through it; a nil Options.Progress
// falls back to LogProgress.
type Progress interface {
	SetAction(action string)
	SetProgress(current, max uint64)
	Info(text string)
	Warning(text string)
	Error(text string)
	OutputDebug() bool
}

// LogProgress forwards progress callbacks to sigolo. SetProgress only logs
// at debug level to keep the default import output readable.
type LogProgress struct {
	Debug bool
}

func (p *LogProgress) SetAction(action string) { sigolo.Infof("importing: %s", action) }

func (p *LogProgress) SetProgress(current, max uint64) {
	if p.Debug {
		sigolo.Debugf("importing: %d/%d", current, max)
	}
}

func (p *LogProgress) Info(text string)    { sigolo.Infof("importing: %s", text) }
func (p *LogProgress) Warning(text string) { sigolo.Warnf("importing: %s", text) }
func (p *LogProgress) Error(text string)   { sigolo.Errorf("importing: %s", text) }
func (p *LogProgress) OutputDebug() bool   { return p.Debug }
