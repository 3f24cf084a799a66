package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/warbler/internal/model"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Taken reports whether another user (id != excludeID) already uses the value in column.
	Taken(ctx context.Context, column UniqueColumn, value string, excludeID uint) (bool, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uint) error
	// List 按 id 升序；q 非空时按用户名做区分大小写的子串匹配
	List(ctx context.Context, q string, offset, limit int) ([]*model.User, error)
}

// UniqueColumn 用户表上带唯一约束的列
type UniqueColumn string

const (
	ColumnUsername UniqueColumn = "username"
	ColumnEmail    UniqueColumn = "email"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where(equalExpr(r.dialect(), string(ColumnUsername)), username).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Taken(ctx context.Context, column UniqueColumn, value string, excludeID uint) (bool, error) {
	var cnt int64
	q := r.db.WithContext(ctx).Model(&model.User{}).Where(equalExpr(r.dialect(), string(column)), value)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete 删除用户；消息、关注、点赞由外键级联删除
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, q string, offset, limit int) ([]*model.User, error) {
	tx := r.db.WithContext(ctx).Model(&model.User{})
	if q != "" {
		tx = tx.Where(containsExpr(r.dialect()), q)
	}
	var res []*model.User
	err := tx.Order("id").Offset(offset).Limit(limit).Find(&res).Error
	return res, err
}

func (r *userRepository) dialect() string { return r.db.Dialector.Name() }

// equalExpr 用户名与邮箱按字节比较；mysql 默认排序规则不区分大小写，需显式 BINARY
func equalExpr(dialect, column string) string {
	if dialect == "mysql" {
		return "BINARY " + column + " = ?"
	}
	return column + " = ?"
}

// containsExpr 使用位置函数而不是 LIKE：sqlite 的 LIKE 对 ASCII 不区分大小写
func containsExpr(dialect string) string {
	switch dialect {
	case "postgres":
		return "STRPOS(username, ?) > 0"
	case "mysql":
		return "INSTR(BINARY username, ?) > 0"
	default:
		return "INSTR(username, ?) > 0"
	}
}
