package database

import (
	"Formpay/config"
	"Formpay/models"
	"Formpay/pkg/log"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB 初始化数据库连接
func NewDB(conf *config.Config) *gorm.DB {
	dsn := conf.MySQL.Dsn()
	level := logger.Warn
	if conf.Debug() {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		log.L.Fatal("failed to connect database", zap.Error(err))
	}
	log.L.Info("connect database success")
	return db
}

// Migrate 建表，submission 的 payment_id 与 payment_log 的 (submission_id, dedup_key) 唯一索引由此创建
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Submission{}, &models.PaymentLog{}, &models.Goods{})
}
