package me

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomchat/internal/app/commands"
	"roomchat/internal/app/dto"
	"roomchat/internal/app/uow"
	domainuser "roomchat/internal/domain/user"
	"roomchat/internal/infra/storage/s3"
)

const uploadAvatarKey = "me.avatar.upload"

// MaxAvatarBytes bounds accepted avatar uploads.
const MaxAvatarBytes = 5 << 20

var (
	ErrAvatarMissing     = errors.New("me: avatar file is required")
	ErrAvatarTooLarge    = errors.New("me: avatar exceeds size limit")
	ErrAvatarContentType = errors.New("me: avatar must be an image")
)

type UploadAvatarCommand struct {
	Requester   string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

func (c UploadAvatarCommand) Key() string         { return uploadAvatarKey }
func (c UploadAvatarCommand) RequesterID() string { return c.Requester }

type UploadAvatarHandler struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *UploadAvatarHandler) Handle(ctx context.Context, cmd UploadAvatarCommand) (dto.UserProfile, error) {
	if h.Uploader == nil {
		return dto.UserProfile{}, s3.ErrNotConfigured
	}
	if cmd.Reader == nil {
		return dto.UserProfile{}, ErrAvatarMissing
	}
	if cmd.Size > MaxAvatarBytes {
		return dto.UserProfile{}, ErrAvatarTooLarge
	}
	if !strings.HasPrefix(strings.ToLower(cmd.ContentType), "image/") {
		return dto.UserProfile{}, ErrAvatarContentType
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.UserProfile{}, err
	}
	u, err := unit.Users().ByID(ctx, domainuser.ID(cmd.Requester))
	if err != nil {
		return dto.UserProfile{}, err
	}

	key := path.Join("avatars", string(u.ID), uuid.NewString()+strings.ToLower(path.Ext(cmd.Filename)))
	url, err := h.Uploader.Upload(ctx, key, cmd.Reader, cmd.Size, cmd.ContentType)
	if err != nil {
		return dto.UserProfile{}, err
	}
	u.SetAvatar(url, h.now())
	if err := unit.Users().Save(ctx, u); err != nil {
		return dto.UserProfile{}, err
	}
	if h.Logger != nil {
		h.Logger.Info("avatar updated", "user_id", u.ID, "key", key)
	}
	return dto.MapUserProfile(u), nil
}

func (h *UploadAvatarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ commands.Handler[UploadAvatarCommand, dto.UserProfile] = (*UploadAvatarHandler)(nil)
