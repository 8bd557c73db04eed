package core

// ApplicantRecord 是一名申请人的原始输入（Web 表单或上传表格聚合后的结果）。
//
// 所有标量字段都保留用户提交的原始字符串，空串表示"未提供"；
// 解析与默认值由 feature.Deriver 负责：
//
//	字段                  默认值
//	Priority             1
//	ExamScore            0
//	Achievement          0
//	Age                  15
//	YearsSinceGraduation 0
//	Contract … Region    0（接受 on/off、true/false、数字）
//	Country              "Российская Федерация"
//	Competition          "Основные места"
//	StudyForm            "Очная"
//	Benefit              "Нет"
//	Direction            "00.00.00"
//	BVI, BVICategory     0（仅本科/专家）
//	Olympiad             "Не писал"（仅本科/专家）
//	Level                "Бакалавр"（仅本科/专家）
//	Institution          "Школа"（仅本科/专家）
//
// ApplicantRecord 是请求级的值，不在请求之间共享。
type ApplicantRecord struct {
	ID string `json:"id,omitempty"`

	Priority             string `json:"priority,omitempty"`
	ExamScore            string `json:"exam_score,omitempty"`
	Achievement          string `json:"achievement,omitempty"`
	Contract             string `json:"contract,omitempty"`
	Dormitory            string `json:"dormitory,omitempty"`
	Foreign              string `json:"foreign,omitempty"`
	Gender               string `json:"gender,omitempty"`
	Age                  string `json:"age,omitempty"`
	YearsSinceGraduation string `json:"years_since_graduation,omitempty"`
	City                 string `json:"city,omitempty"`
	Region               string `json:"region,omitempty"`

	Country     string `json:"country,omitempty"`
	Competition string `json:"competition,omitempty"`
	StudyForm   string `json:"form,omitempty"`
	Benefit     string `json:"benefit,omitempty"`
	Direction   string `json:"direction,omitempty"`

	// 以下字段仅对本科/专家 track 生效
	BVI         string `json:"bvi,omitempty"`
	BVICategory string `json:"bvi_category,omitempty"`
	Olympiad    string `json:"olympiad,omitempty"`
	Level       string `json:"level,omitempty"`
	Institution string `json:"institution,omitempty"`

	Subjects []SubjectEntry `json:"subjects,omitempty"`
}

// SubjectEntry 是一门已修课程的记录：课程名、成绩标签、百分制分数、重考次数。
type SubjectEntry struct {
	Name    string `json:"name"`
	Grade   string `json:"grade,omitempty"`
	Score   string `json:"score,omitempty"`
	Retakes string `json:"retakes,omitempty"`
}
