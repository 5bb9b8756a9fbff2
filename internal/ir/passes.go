package ir

import "go.uber.org/zap"

// ============================================================================
// Pass 接口
// ============================================================================

// Pass 作用于整个程序的 Pass
type Pass interface {
	Name() string
	Run(p *Program) (bool, error) // 返回是否有修改
}

// ============================================================================
// Pass 管理器
// ============================================================================

// PassManager Pass 管理器
type PassManager struct {
	passes []Pass
	stats  PassStats
	logger *zap.Logger
}

// PassStats Pass 统计信息
type PassStats struct {
	PassesRun      int
	TotalChanges   int
	PerPassChanges map[string]int
}

// NewPassManager 创建 Pass 管理器
func NewPassManager(logger *zap.Logger) *PassManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PassManager{
		passes: make([]Pass, 0),
		stats: PassStats{
			PerPassChanges: make(map[string]int),
		},
		logger: logger,
	}
}

// AddPass 添加 Pass
func (pm *PassManager) AddPass(p Pass) {
	pm.passes = append(pm.passes, p)
}

// Run 依次运行所有 Pass，遇到错误立即原样返回（保留组合诊断）
func (pm *PassManager) Run(p *Program) error {
	for _, pass := range pm.passes {
		pm.stats.PassesRun++
		changed, err := pass.Run(p)
		if err != nil {
			pm.logger.Debug("pass failed", zap.String("pass", pass.Name()), zap.Error(err))
			return err
		}
		if changed {
			pm.stats.TotalChanges++
			pm.stats.PerPassChanges[pass.Name()]++
		}
		pm.logger.Debug("pass done", zap.String("pass", pass.Name()), zap.Bool("changed", changed))
	}
	return nil
}

// Stats 返回统计信息
func (pm *PassManager) Stats() PassStats {
	return pm.stats
}

// ============================================================================
// 校验 Pass
// ============================================================================

// VerifyPass 把 Verify 包装成 Pass
type VerifyPass struct{}

func (VerifyPass) Name() string { return "verify" }

func (VerifyPass) Run(p *Program) (bool, error) {
	return false, Verify(p)
}
