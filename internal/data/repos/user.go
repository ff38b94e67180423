package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/labelbridge-backend/internal/domain"
	"github.com/yungbote/labelbridge-backend/internal/pkg/dbctx"
	"github.com/yungbote/labelbridge-backend/internal/pkg/logger"
)

type UserRepo interface {
	Create(dbc dbctx.Context, users []*domain.User) ([]*domain.User, error)
	GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*domain.User, error)
	GetByID(dbc dbctx.Context, userID uuid.UUID) (*domain.User, error)
	GetByEmails(dbc dbctx.Context, emails []string) ([]*domain.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userRepo) Create(dbc dbctx.Context, users []*domain.User) ([]*domain.User, error) {
	if len(users) == 0 {
		return []*domain.User{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, userIDs []uuid.UUID) ([]*domain.User, error) {
	var results []*domain.User
	if len(userIDs) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("id IN ?", userIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, userID uuid.UUID) (*domain.User, error) {
	users, err := r.GetByIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return users[0], nil
}

func (r *userRepo) GetByEmails(dbc dbctx.Context, emails []string) ([]*domain.User, error) {
	var results []*domain.User
	if len(emails) == 0 {
		return results, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("email IN ?", emails).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type UserTokenRepo interface {
	Create(dbc dbctx.Context, tokens []*domain.UserToken) ([]*domain.UserToken, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.UserToken, error)
	FullDeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *userTokenRepo) Create(dbc dbctx.Context, tokens []*domain.UserToken) ([]*domain.UserToken, error) {
	if len(tokens) == 0 {
		return []*domain.UserToken{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *userTokenRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) ([]*domain.UserToken, error) {
	var results []*domain.UserToken
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userTokenRepo) FullDeleteByUserID(dbc dbctx.Context, userID uuid.UUID) error {
	return r.tx(dbc).WithContext(dbc.Ctx).
		Unscoped().
		Where("user_id = ?", userID).
		Delete(&domain.UserToken{}).Error
}
