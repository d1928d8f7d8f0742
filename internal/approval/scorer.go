package approval

import "time"

// 两套紧急度评分并存：
// UrgencyScore 是连续公式，用于趋势/SLA 报表；
// DisplayScore 是静态映射，仅用于待审列表卡片的紧凑展示。
// 二者口径不同，产品未拍板统一前不要合并。

// tierMultipliers 档位系数，未知档位按 medium 处理
var tierMultipliers = map[UrgencyTier]float64{
	TierUrgent: 4,
	TierHigh:   3,
	TierMedium: 2,
	TierLow:    1,
}

// UrgencyScore 连续紧急度评分
// score = 条目存在小时数 × 档位系数，无上限：长期积压的低优先级条目
// 最终会超过新建的紧急条目，属于刻意的陈旧度优先策略。
func UrgencyScore(tier UrgencyTier, createdAt, now time.Time) float64 {
	hoursOld := now.Sub(createdAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	multiplier, ok := tierMultipliers[tier]
	if !ok {
		multiplier = 2
	}
	return hoursOld * multiplier
}

// displayScores 列表卡片的静态分值映射
var displayScores = map[UrgencyTier]int{
	TierHigh:   120,
	TierMedium: 80,
	TierLow:    40,
}

// DisplayScore 静态展示评分，未知档位返回 60
func DisplayScore(tier UrgencyTier) int {
	if score, ok := displayScores[tier]; ok {
		return score
	}
	return 60
}
