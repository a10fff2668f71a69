package scanner

import (
	"context"
	"errors"

	"TanLu/internal/model"
)

var ErrNoTargets = errors.New("no targets provided")

// Sweep 依次扫描每个目标（一个目标扫完再开始下一个），返回全部保留结果和汇总
func (ds *DirScanner) Sweep(ctx context.Context, targets []string, paths []string, saveAll bool, headers map[string]string) ([]model.Finding, model.ScanSummary, error) {
	if len(targets) == 0 {
		return nil, model.ScanSummary{}, ErrNoTargets
	}

	all := []model.Finding{}
	summary := model.ScanSummary{
		TargetsScanned: len(targets),
		Targets:        make([]model.TargetSummary, 0, len(targets)),
	}

	for _, target := range targets {
		logger := ds.logger.With("target", target)
		logger.Info("开始扫描 (%d 个路径)", len(paths))

		results := ds.ScanTarget(ctx, target, paths, saveAll, headers)
		for _, r := range results {
			if len(r.KeywordHits) > 0 {
				summary.KeywordHitRecords++
			}
		}
		all = append(all, results...)
		summary.Targets = append(summary.Targets, model.TargetSummary{
			Target:        target,
			FindingsCount: len(results),
		})

		logger.Info("扫描完成，保留 %d 条记录", len(results))
	}

	summary.TotalFindings = len(all)
	return all, summary, nil
}
