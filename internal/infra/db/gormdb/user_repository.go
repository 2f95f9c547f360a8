package gormdb

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainuser "roomchat/internal/domain/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).Take(&m).Error; err != nil {
		return nil, translateUserErr(err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("email = ?", domainuser.NormalizeEmail(email)).Take(&m).Error; err != nil {
		return nil, translateUserErr(err)
	}
	return m.toDomain(), nil
}

func (r *UserRepository) Search(ctx context.Context, query string) ([]domainuser.User, error) {
	q := r.db.WithContext(ctx).Model(&userModel{})
	if term := strings.ToLower(strings.TrimSpace(query)); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where(
			"LOWER(email) LIKE ? ESCAPE '\\' OR LOWER(phone) LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\'",
			pattern, pattern, pattern,
		)
	}
	var rows []userModel
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domainuser.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toDomain())
	}
	return out, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	m := newUserModel(user)
	if m.Email == "" {
		return domainuser.ErrEmailRequired
	}
	db := r.db.WithContext(ctx)
	var taken int64
	if err := db.Model(&userModel{}).Where("email = ? AND id <> ?", m.Email, m.ID).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return domainuser.ErrEmailAlreadyUsed
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainuser.ErrEmailAlreadyUsed
	}
	return err
}

// Delete removes a user row. Room memberships and messages keep the dangling id.
func (r *UserRepository) Delete(ctx context.Context, id domainuser.ID) error {
	res := r.db.WithContext(ctx).Where("id = ?", string(id)).Delete(&userModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainuser.ErrNotFound
	}
	return nil
}

func (r *UserRepository) byIDs(ctx context.Context, ids []string) (map[string]*domainuser.User, error) {
	out := make(map[string]*domainuser.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []userModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.toDomain()
	}
	return out, nil
}

func translateUserErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainuser.ErrNotFound
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ domainuser.Repository = (*UserRepository)(nil)
