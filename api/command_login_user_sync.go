package api

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/sigle/sigle-auth/siws"
	"github.com/uptrace/bun"
)

var errInvalidAddress = errors.New("must be a valid Stacks address")

// LoginUserSyncMessage asks for the user id of a freshly verified address
type LoginUserSyncMessage struct {
	Address   string `json:"address" form:"address"`
	UseHashid bool   `json:"-"`
}

func (e LoginUserSyncMessage) Type() string { return "user.login_sync" }

// Validate checks the address is a well formed c32check Stacks address
func (e LoginUserSyncMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Address,
			validation.Required,
			validation.By(func(value any) error {
				address, _ := value.(string)
				if !siws.ValidAddress(address) {
					return errInvalidAddress
				}
				return nil
			}),
		),
	)
}

// LoginUserSyncHandler resolves an address to its user, creating the user
// on first sign-in.
type LoginUserSyncHandler struct {
	repo RepositoryManager
}

// NewLoginUserSyncHandler creates the handler
func NewLoginUserSyncHandler(repo RepositoryManager) *LoginUserSyncHandler {
	return &LoginUserSyncHandler{repo: repo}
}

func (h *LoginUserSyncHandler) Execute(ctx context.Context, event LoginUserSyncMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during login sync",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *LoginUserSyncHandler) execute(ctx context.Context, event LoginUserSyncMessage) (*User, error) {
	event.Address = strings.TrimSpace(event.Address)

	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login sync payload").
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &User{Address: event.Address}
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Address); err == nil {
				record.ID = id
			}
		}

		found, err := h.repo.Users().GetOrCreateTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not get or create user")
		}

		if err := h.repo.Users().TrackLoginTx(ctx, tx, found); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not track login")
		}

		user = found
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login sync transaction failed")
	}

	return user, nil
}
