package api

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TrackLoginSQL stamps a successful sign-in on a user row
var TrackLoginSQL = `UPDATE "users"
SET
	"logged_in_at" = ?,
	"updated_at" = ?,
	"login_count" = "login_count" + 1
WHERE
	"id" = ?;`

// Users is the user repository keyed by wallet address
type Users interface {
	repository.Repository[*User]

	GetByAddress(ctx context.Context, address string) (*User, error)
	GetByAddressTx(ctx context.Context, tx bun.IDB, address string) (*User, error)
	GetOrCreate(ctx context.Context, record *User) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	TrackLogin(ctx context.Context, user *User) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the users repository over db
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "address"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
}

func (a *users) GetByAddress(ctx context.Context, address string) (*User, error) {
	return a.GetByAddressTx(ctx, a.db, address)
}

func (a *users) GetByAddressTx(ctx context.Context, tx bun.IDB, address string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.address = ?", strings.TrimSpace(address)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, errors.Wrap(repository.ErrRecordNotFound, errors.CategoryNotFound, "user not found").
				WithCode(errors.CodeNotFound).
				WithTextCode("USER_NOT_FOUND").
				WithMetadata(map[string]any{
					"address": address,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetOrCreate(ctx context.Context, record *User) (*User, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

// GetOrCreateTx returns the user holding record.Address, creating it with
// record's id when the address is new.
func (a *users) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	user, err := a.GetByAddressTx(ctx, tx, record.Address)
	if err == nil {
		return user, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) TrackLogin(ctx context.Context, user *User) error {
	return a.TrackLoginTx(ctx, a.db, user)
}

func (a *users) TrackLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := a.now()
	if _, err := tx.NewRaw(TrackLoginSQL, now, now, user.ID).Exec(ctx); err != nil {
		return err
	}

	user.LoggedInAt = &now
	user.UpdatedAt = &now
	user.LoginCount++
	return nil
}

// RepositoryManager exposes the repositories and the transaction runner
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
}

type mngr struct {
	db    *bun.DB
	users Users
}

// NewRepositoryManager builds every repository over db
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:    db,
		users: NewUsersRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized", errors.CategoryInternal)
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}
