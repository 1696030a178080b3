package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrUnknownStep = errors.New("unknown wizard step")

type Step string

const (
	StepUpload    Step = "upload"
	StepArrange   Step = "arrange"
	StepVoiceover Step = "voiceover"
	StepMusic     Step = "music"
	StepCaptions  Step = "captions"
	StepExport    Step = "export"
)

// Steps lists the wizard steps in display order.
var Steps = []Step{StepUpload, StepArrange, StepVoiceover, StepMusic, StepCaptions, StepExport}

// ParseStep resolves a step name. Any step can be entered from any other.
func ParseStep(name string) (Step, error) {
	for _, s := range Steps {
		if string(s) == name {
			return s, nil
		}
	}
	return "", ErrUnknownStep
}

// Index returns the position of the step in Steps, or -1.
func (s Step) Index() int {
	for i, step := range Steps {
		if step == s {
			return i
		}
	}
	return -1
}

type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// MaxClipsHint is the clip count at which the arrange view stops offering "add more".
const MaxClipsHint = 10

type VideoClip struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Thumbnail  string `json:"thumbnail"`
	Duration   int    `json:"duration"`
	Resolution string `json:"resolution"`
}

type Caption struct {
	At   time.Duration
	Text string
}

func (c Caption) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		At   string `json:"at"`
		Text string `json:"text"`
	}{At: c.Timestamp(), Text: c.Text})
}

func (c *Caption) UnmarshalJSON(data []byte) error {
	var raw struct {
		At   string `json:"at"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var mins, secs int
	if _, err := fmt.Sscanf(raw.At, "%d:%d", &mins, &secs); err != nil {
		return fmt.Errorf("invalid caption timestamp %q: %w", raw.At, err)
	}
	c.At = time.Duration(mins*60+secs) * time.Second
	c.Text = raw.Text
	return nil
}

// Timestamp renders the caption offset as MM:SS.
func (c Caption) Timestamp() string {
	total := int(c.At / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
