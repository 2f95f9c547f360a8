package gormdb

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"roomchat/internal/app/uow"
	domainroom "roomchat/internal/domain/room"
	domainuser "roomchat/internal/domain/user"
)

// Factory wires gorm transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *gorm.DB
}

var ErrUnitOfWorkNotConfigured = errors.New("gormdb: unit of work factory missing database")

// Begin opens a transaction for writes. Read-only units run on the shared pool.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	if opts.ReadOnly {
		db := f.DB.WithContext(ctx)
		return &Unit{db: db, users: NewUserRepository(db), rooms: NewRoomRepository(db)}, nil
	}
	tx := f.DB.WithContext(ctx).Begin(&sql.TxOptions{})
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{db: tx, tx: true, users: NewUserRepository(tx), rooms: NewRoomRepository(tx)}, nil
}

type Unit struct {
	db   *gorm.DB
	tx   bool
	done bool

	users *UserRepository
	rooms *RoomRepository
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Rooms() domainroom.Repository {
	return u.rooms
}

func (u *Unit) Commit(ctx context.Context) error {
	if !u.tx || u.done {
		return nil
	}
	u.done = true
	return u.db.Commit().Error
}

func (u *Unit) Rollback(ctx context.Context) error {
	if !u.tx || u.done {
		return nil
	}
	u.done = true
	return u.db.Rollback().Error
}
