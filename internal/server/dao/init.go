package dao

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"gatekeep/internal/common"
	"gatekeep/internal/server/model"
)

var db *gorm.DB

func Init() error {
	cfg := common.GetConfig()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	database, err := gorm.Open(mysql.Open(dsn))
	if err != nil {
		return err
	}
	db = database
	return db.AutoMigrate(&model.Run{}, &model.JobExecution{}, &model.User{})
}
