package core

import "strings"

// Track 是录取层级（本科/专家 与 硕士），决定使用哪个模型、特征集与派生规则。
type Track string

const (
	TrackUndergraduateSpecialist Track = "undergraduate_specialist"
	TrackGraduate                Track = "graduate"
)

// 历史表单/接口中使用的别名
const (
	trackAliasBakSpec = "bak_spec"
	trackAliasMagistr = "magistr"
)

// ParseTrack 解析 track 选择器，同时接受规范名与旧接口别名（bak_spec / magistr）。
// track 没有默认值，无法识别时返回 UnparsableInputError。
func ParseTrack(s string) (Track, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TrackUndergraduateSpecialist), trackAliasBakSpec:
		return TrackUndergraduateSpecialist, nil
	case string(TrackGraduate), trackAliasMagistr:
		return TrackGraduate, nil
	}
	return "", &UnparsableInputError{Field: "track", Value: s}
}

// Alias 返回 track 在旧接口中的名字（表单前缀、远程模型服务协议都使用它）。
func (t Track) Alias() string {
	if t == TrackGraduate {
		return trackAliasMagistr
	}
	return trackAliasBakSpec
}

func (t Track) Valid() bool {
	return t == TrackUndergraduateSpecialist || t == TrackGraduate
}

func (t Track) String() string { return string(t) }

// Tracks 返回全部已知 track（顺序固定）。
func Tracks() []Track {
	return []Track{TrackUndergraduateSpecialist, TrackGraduate}
}
