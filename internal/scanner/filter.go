package scanner

import "TanLu/internal/model"

// Keep 保留策略：saveAll、请求成功、命中关键词三者任一成立即保留
func Keep(finding model.Finding, saveAll bool) bool {
	return saveAll || finding.OK || len(finding.KeywordHits) > 0
}
