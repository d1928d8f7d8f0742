package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gormLogger "gorm.io/gorm/logger"
)

// TestGormLogLevel 应用日志级别到 GORM 日志级别的映射
func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormLogger.Info, gormLogLevel("debug"))
	assert.Equal(t, gormLogger.Error, gormLogLevel("error"))
	assert.Equal(t, gormLogger.Warn, gormLogLevel("info"))
	assert.Equal(t, gormLogger.Warn, gormLogLevel("warn"))
	assert.Equal(t, gormLogger.Warn, gormLogLevel(""))
}
