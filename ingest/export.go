package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rushteam/admitkit/core"
)

// ResultRow 是一名学生的导出结果；Err 非空表示该行评分失败。
type ResultRow struct {
	ID     string
	Result core.ScoringResult
	Err    error
}

// ResultColumns 是导出 CSV 的固定列
var ResultColumns = []string{"id", "probability", "above_threshold", "recommendation"}

// WriteResults 以 CSV 导出结果：id, probability（百分比，两位小数）,
// above_threshold（probability >= threshold 时为 1，否则 0）, recommendation（判定规则的结论）。
// 配置了自定义规则时 above_threshold 与 recommendation 可能不一致。
// 存在失败行时追加 error 列，失败行除 id 外留空。
func WriteResults(w io.Writer, rows []ResultRow, threshold float64) error {
	withErr := false
	for _, r := range rows {
		if r.Err != nil {
			withErr = true
			break
		}
	}

	cw := csv.NewWriter(w)
	head := append([]string(nil), ResultColumns...)
	if withErr {
		head = append(head, "error")
	}
	if err := cw.Write(head); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.ID, "", "", ""}
		if r.Err == nil {
			rec[1] = strconv.FormatFloat(r.Result.Percent(), 'f', 2, 64)
			rec[2] = "0"
			if r.Result.Probability >= threshold {
				rec[2] = "1"
			}
			rec[3] = string(r.Result.Recommendation)
		}
		if withErr {
			msg := ""
			if r.Err != nil {
				msg = r.Err.Error()
			}
			rec = append(rec, msg)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
