package paint

// PresetKind 区分纯色与渐变预设。
type PresetKind string

const (
	PresetSolid    PresetKind = "solid"
	PresetGradient PresetKind = "gradient"
)

// Preset 是一个可直接写入 backgroundColor 的背景预设。
type Preset struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Kind        PresetKind `json:"type"`
	Value       string     `json:"value"`
	Description string     `json:"description"`
}

var presets = []Preset{
	{"solid-white", "纯白", PresetSolid, "#FFFFFF", "简洁纯白背景"},
	{"solid-black", "纯黑", PresetSolid, "#000000", "经典黑色背景"},
	{"solid-gray", "浅灰", PresetSolid, "#F5F5F5", "柔和灰色背景"},
	{"solid-blue", "天蓝", PresetSolid, "#E3F2FD", "清新天蓝色"},
	{"solid-pink", "粉红", PresetSolid, "#FCE4EC", "温柔粉红色"},
	{"solid-green", "薄荷绿", PresetSolid, "#E8F5E9", "清新薄荷绿"},
	{"gradient-sunset", "日落", PresetGradient, "linear-gradient(135deg, #FF6B6B 0%, #FFE66D 100%)", "温暖日落渐变"},
	{"gradient-ocean", "海洋", PresetGradient, "linear-gradient(135deg, #667eea 0%, #764ba2 100%)", "深邃海洋渐变"},
	{"gradient-forest", "森林", PresetGradient, "linear-gradient(135deg, #56ab2f 0%, #a8e063 100%)", "清新森林渐变"},
	{"gradient-sky", "天空", PresetGradient, "linear-gradient(135deg, #89f7fe 0%, #66a6ff 100%)", "晴朗天空渐变"},
	{"gradient-fire", "火焰", PresetGradient, "linear-gradient(135deg, #f093fb 0%, #f5576c 100%)", "热情火焰渐变"},
	{"gradient-purple", "紫梦", PresetGradient, "linear-gradient(135deg, #a8edea 0%, #fed6e3 100%)", "梦幻紫色渐变"},
	{"gradient-gold", "金色", PresetGradient, "linear-gradient(135deg, #f7971e 0%, #ffd200 100%)", "奢华金色渐变"},
	{"gradient-rose", "玫瑰", PresetGradient, "linear-gradient(135deg, #ff9a9e 0%, #fecfef 100%)", "浪漫玫瑰渐变"},
	{"gradient-mint", "薄荷", PresetGradient, "linear-gradient(135deg, #a1c4fd 0%, #c2e9fb 100%)", "清凉薄荷渐变"},
	{"gradient-peach", "蜜桃", PresetGradient, "linear-gradient(135deg, #ffecd2 0%, #fcb69f 100%)", "甜美蜜桃渐变"},
	{"gradient-night", "夜空", PresetGradient, "linear-gradient(135deg, #2c3e50 0%, #3498db 100%)", "神秘夜空渐变"},
	{"gradient-aurora", "极光", PresetGradient, "linear-gradient(135deg, #00c6ff 0%, #0072ff 100%)", "绚丽极光渐变"},
}

// Presets 返回全部背景预设的副本。kind 为空时不过滤。
func Presets(kind PresetKind) []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		if kind == "" || p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// LookupPreset 按 id 查找预设。
func LookupPreset(id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}
