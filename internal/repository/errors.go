package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 更新/删除的目标行不存在
	ErrNotFound = errors.New("record not found")
	// ErrInUse 仍被其它记录引用
	ErrInUse = errors.New("record in use")
	// ErrDuplicate 违反唯一约束
	ErrDuplicate = errors.New("duplicate record")
)

func isDuplicateError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func translateDuplicate(err error) error {
	if err != nil && isDuplicateError(err) {
		return ErrDuplicate
	}
	return err
}
