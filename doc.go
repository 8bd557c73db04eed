// Package admitkit 是录取流失风险预测工具包。
//
// 设计要点：
// - Derive → Rank → Score：原始申请记录派生为固定的特征向量，同伴名次作为其中一列，最后由分类器打分
// - Track-first: 本科/专家 与 硕士 各有独立的模型、阈值、特征列与参考数据
// - 模型可插拔：本地 LR / 线性模型、远程模型服务、KServe 均通过 model.Register 注册
package admitkit

import (
	"github.com/rushteam/admitkit/core"
	"github.com/rushteam/admitkit/service"
)

// 轻量 facade：便于用户直接 import "admitkit" 使用核心抽象。
type (
	Track           = core.Track
	ApplicantRecord = core.ApplicantRecord
	FeatureVector   = core.FeatureVector
	ScoringResult   = core.ScoringResult
	Predictor       = service.Predictor
	TrackBundle     = service.TrackBundle
)

const (
	TrackUndergraduateSpecialist = core.TrackUndergraduateSpecialist
	TrackGraduate                = core.TrackGraduate
)
