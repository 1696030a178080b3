package models

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type Age string

const (
	AgeYoung  Age = "young"
	AgeMiddle Age = "middle"
	AgeOld    Age = "old"
)

// VoiceOption is a selectable narrator. VoiceName is passed verbatim to the
// speech backend.
type VoiceOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Gender    Gender `json:"gender"`
	Age       Age    `json:"age"`
	Emotion   string `json:"emotion"`
	VoiceName string `json:"voice_name"`
}

type MusicOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Genre string `json:"genre"`
	Mood  string `json:"mood"`
	URL   string `json:"url"`
}

var VoiceCatalog = []VoiceOption{
	{ID: "v1", Name: "Thanh Hà", Gender: GenderFemale, Age: AgeYoung, Emotion: "Trầm ấm", VoiceName: "Kore"},
	{ID: "v2", Name: "Minh Đức", Gender: GenderMale, Age: AgeYoung, Emotion: "Mạnh mẽ", VoiceName: "Puck"},
	{ID: "v3", Name: "Hồng Vân", Gender: GenderFemale, Age: AgeMiddle, Emotion: "Truyền cảm", VoiceName: "Charon"},
	{ID: "v4", Name: "Gia Bảo", Gender: GenderMale, Age: AgeMiddle, Emotion: "Nghiêm túc", VoiceName: "Fenrir"},
	{ID: "v5", Name: "Linh Chi", Gender: GenderFemale, Age: AgeYoung, Emotion: "Vui vẻ", VoiceName: "Zephyr"},
}

var MusicCatalog = []MusicOption{
	{ID: "m1", Title: "Sunshine Walk", Genre: "Acoustic", Mood: "Vui tươi"},
	{ID: "m2", Title: "Deep Ocean", Genre: "Ambient", Mood: "Nhẹ nhàng"},
	{ID: "m3", Title: "City Lights", Genre: "Lo-fi", Mood: "Thư giãn"},
	{ID: "m4", Title: "Epic Journey", Genre: "Cinematic", Mood: "Hào hùng"},
	{ID: "m5", Title: "Midnight Chill", Genre: "Jazz", Mood: "Sang trọng"},
}

// DefaultVoice is the voice selected when a project starts.
func DefaultVoice() VoiceOption {
	return VoiceCatalog[0]
}

func FindVoice(id string) (VoiceOption, bool) {
	for _, v := range VoiceCatalog {
		if v.ID == id {
			return v, true
		}
	}
	return VoiceOption{}, false
}

// FindVoiceByName looks a voice up by its backend name, case-sensitively.
func FindVoiceByName(name string) (VoiceOption, bool) {
	for _, v := range VoiceCatalog {
		if v.VoiceName == name {
			return v, true
		}
	}
	return VoiceOption{}, false
}

func FindMusic(id string) (MusicOption, bool) {
	for _, m := range MusicCatalog {
		if m.ID == id {
			return m, true
		}
	}
	return MusicOption{}, false
}
