package feature

import (
	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/pkg/conv"
)

// 特征名与训练产物中的列名逐字一致（包括 "Cумма" 开头的拉丁字母 C）。
const (
	Priority             = "Приоритет"
	ExamScore            = "Cумма баллов испытаний"
	Achievement          = "Балл за инд. достижения"
	Contract             = "Контракт"
	Dormitory            = "Нуждается в общежитии"
	Foreign              = "Иностранный абитуриент (МОН)"
	Gender               = "Пол"
	Age                  = "Полных лет на момент поступления"
	YearsSinceGraduation = "Прошло лет с окончания уч. заведения"
	FromEkaterinburg     = "fromEkaterinburg"
	FromSverdlovskRegion = "fromSverdlovskRegion"
	HumanDevelopment     = "Human Development Index"

	PostSoviet    = "PostSoviet"
	OtherCountry  = "others"
	SpecialQuota  = "Особая квота"
	SeparateQuota = "Отдельная квота"
	TargetQuota   = "Целевая квота"
	Extramural    = "Заочная"
	PartTime      = "Очно-заочная"

	CombatVeteran = "Боевые действия"
	Disability    = "Инвалиды"
	ForeignQuota  = "Квота для иностранных граждан"
	Orphan        = "Сироты"

	Direction10       = "Код направления 1: 10"
	Direction11       = "Код направления 1: 11"
	Direction27       = "Код направления 1: 27"
	Direction29       = "Код направления 1: 29"
	DirectionSuffix02 = "Код направления 3: 2"
	DirectionSuffix03 = "Код направления 3: 3"
	DirectionSuffix04 = "Код направления 3: 4"

	BVI                = "БВИ"
	BVICategory        = "Категория конкурса БВИ"
	OlympiadAllRussian = "всероссийская олимпиада школьников (ВОШ)"
	OlympiadListed     = "олимпиада из перечня, утвержденного МОН РФ (ОШ)"
	Specialist         = "Специалист"
	MilitaryInst       = "Военное уч. заведение"
	HigherEducation    = "Высшее"
	SpecializedSchool  = "Профильная Школа"
	Vocational         = "СПО"

	TotalRetakes = "Общее количество пересдач"
	TotalDebts   = "Общее количество долгов"
	PeerRank     = "Позиция студента в рейтинге"
)

// 原始字段的默认取值
const (
	DefaultCountry     = "Российская Федерация"
	DefaultCompetition = "Основные места"
	DefaultStudyForm   = "Очная"
	DefaultBenefit     = "Нет"
	DefaultDirection   = "00.00.00"
	DefaultOlympiad    = "Не писал"
	DefaultLevel       = "Бакалавр"
	DefaultInstitution = "Школа"

	DefaultPriority = 1
	DefaultAge      = 15
)

// postSovietCountries 是计入 PostSoviet 的国家（不含俄罗斯联邦）。
var postSovietCountries = []string{
	"Республика Беларусь",
	"Республика Казахстан",
	"Республика Армения",
	"Республика Азербайджан",
	"Республика Молдова",
	"Республика Узбекистан",
	"Республика Таджикистан",
	"Туркменистан",
	"Киргизская Республика",
	"Украина",
}

// failingGrades 是计入"欠账"的成绩标签（含数字成绩 "2"）。
var failingGrades = []string{
	"Незачёт",
	"Недопуск",
	"Недосдал",
	"Неуважительная причина",
	"2",
}

// oneHot 描述一组互斥的指示特征：原始取值 -> 特征名。
// 未列出的取值（隐式基准类别）使全部特征为 0。
type oneHot []struct {
	value   string
	feature string
}

var (
	competitionCategories = oneHot{
		{"Особая квота", SpecialQuota},
		{"Отдельная квота", SeparateQuota},
		{"Целевая квота", TargetQuota},
	}
	studyForms = oneHot{
		{"Заочная", Extramural},
		{"Очно-заочная", PartTime},
	}
	benefitCategories = oneHot{
		{"Боевые действия", CombatVeteran},
		{"Инвалиды", Disability},
		{"Квота для иностранных граждан", ForeignQuota},
		{"Сироты", Orphan},
	}
	olympiadCategories = oneHot{
		{"ВОШ", OlympiadAllRussian},
		{"ОШ", OlympiadListed},
	}
	institutionTypes = oneHot{
		{"Военное учебное заведение", MilitaryInst},
		{"Высшее", HigherEducation},
		{"Профильная школа", SpecializedSchool},
		{"СПО", Vocational},
	}
	directionPrefixes = []struct {
		prefix  string
		feature string
	}{
		{"10", Direction10},
		{"11", Direction11},
		{"27", Direction27},
		{"29", Direction29},
	}
	directionSuffixes = []struct {
		suffix  string
		feature string
	}{
		{"02", DirectionSuffix02},
		{"03", DirectionSuffix03},
		{"04", DirectionSuffix04},
	}
)

// encode 把 value 编码为 one-hot 特征写入 fv。标签比较前会经过 conv.NormalizeLabel。
func (o oneHot) encode(value string, fv *core.FeatureVector) {
	norm := conv.NormalizeLabel(value)
	for _, c := range o {
		fv.Set(c.feature, boolFloat(conv.NormalizeLabel(c.value) == norm))
	}
}

func normalizedSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[conv.NormalizeLabel(v)] = struct{}{}
	}
	return set
}

var (
	postSovietSet   = normalizedSet(postSovietCountries)
	failingGradeSet = normalizedSet(failingGrades)
	homeCountry     = conv.NormalizeLabel(DefaultCountry)
)

// IsPostSoviet 报告国家是否计入 PostSoviet。
func IsPostSoviet(country string) bool {
	_, ok := postSovietSet[conv.NormalizeLabel(country)]
	return ok
}

// IsFailingGrade 报告成绩标签是否计入欠账。
func IsFailingGrade(grade string) bool {
	_, ok := failingGradeSet[conv.NormalizeLabel(grade)]
	return ok
}

// columns 是 Deriver 产出的全部特征（派生顺序）。两个 track 产出同一组特征，
// 硕士 track 的本科专属特征取固定常量。
var columns = []string{
	Priority, ExamScore, Achievement, Contract, Dormitory, Foreign, Gender, Age,
	YearsSinceGraduation, FromEkaterinburg, FromSverdlovskRegion,
	PostSoviet, OtherCountry,
	SpecialQuota, SeparateQuota, TargetQuota,
	Extramural, PartTime,
	CombatVeteran, Disability, ForeignQuota, Orphan,
	Direction10, Direction11, Direction27, Direction29,
	DirectionSuffix02, DirectionSuffix03, DirectionSuffix04,
	BVI, BVICategory, OlympiadAllRussian, OlympiadListed, Specialist,
	MilitaryInst, HigherEducation, SpecializedSchool, Vocational,
	TotalRetakes, TotalDebts, PeerRank, HumanDevelopment,
}

// Columns 返回 Deriver 能产出的全部特征名（副本）。
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns)
	return out
}
