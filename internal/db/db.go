package db

import (
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Mamog1381/fortune/internal/fortune"
	"github.com/Mamog1381/fortune/internal/models"
)

func Connect(dsn string) *gorm.DB {
	gdb, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&fortune.Feature{},
		&fortune.Reading{},
		&fortune.ReadingHistory{},
	); err != nil {
		log.Fatalf("automigrate: %v", err)
	}

	return gdb
}
