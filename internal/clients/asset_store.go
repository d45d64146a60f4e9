package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// 对象布局约定:
//   - 共享桶内的对象键为视频 ID 本身;
//   - 用户桶内的对象键为 <userID>/videos/<videoID>。
// 两个方向的复制都保留源对象的元数据与 Content-Type。

var (
	// ErrSourceMissing 表示复制的源对象不存在。
	ErrSourceMissing = errors.New("asset store: source object missing")
	// ErrAssetMissing 表示签名链接指向的对象不存在。
	ErrAssetMissing = errors.New("asset store: asset missing")
)

// StorageConfig 描述资产存储所需的桶配置。
type StorageConfig struct {
	SharedBucket string
	UsersBucket  string
}

// AssetStore 基于对象存储实现视频资产的复制、删除与签名链接签发。
type AssetStore struct {
	client *storage.Client
	shared string
	users  string
	log    *log.Helper
}

// NewAssetStore 创建对象存储客户端,返回的 cleanup 负责关闭底层连接。
func NewAssetStore(ctx context.Context, cfg StorageConfig, logger log.Logger) (*AssetStore, func(), error) {
	if cfg.SharedBucket == "" || cfg.UsersBucket == "" {
		return nil, nil, errors.New("asset store: shared and users bucket names are required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("asset store: create storage client: %w", err)
	}
	store := &AssetStore{
		client: client,
		shared: cfg.SharedBucket,
		users:  cfg.UsersBucket,
		log:    log.NewHelper(log.With(logger, "module", "clients/asset_store")),
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			store.log.Warnf("close storage client: %v", err)
		}
	}
	return store, cleanup, nil
}

func sharedKey(videoID uuid.UUID) string {
	return videoID.String()
}

func userKey(userID, videoID uuid.UUID) string {
	return fmt.Sprintf("%s/videos/%s", userID, videoID)
}

// CopyToUser 将共享桶中的视频复制到用户桶下的专属前缀。
func (s *AssetStore) CopyToUser(ctx context.Context, userID, videoID uuid.UUID) error {
	src := s.client.Bucket(s.shared).Object(sharedKey(videoID))
	dst := s.client.Bucket(s.users).Object(userKey(userID, videoID))
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("copy %s to user bucket: %w", videoID, ErrSourceMissing)
		}
		return fmt.Errorf("copy %s to user bucket: %w", videoID, err)
	}
	return nil
}

// CopyToShared 将用户桶中的视频副本复制回共享桶,用于补偿。
func (s *AssetStore) CopyToShared(ctx context.Context, userID, videoID uuid.UUID) error {
	src := s.client.Bucket(s.users).Object(userKey(userID, videoID))
	dst := s.client.Bucket(s.shared).Object(sharedKey(videoID))
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("copy %s back to shared bucket: %w", videoID, ErrSourceMissing)
		}
		return fmt.Errorf("copy %s back to shared bucket: %w", videoID, err)
	}
	return nil
}

// DeleteUserCopy 删除用户桶中的视频副本,对象不存在视为成功。
func (s *AssetStore) DeleteUserCopy(ctx context.Context, userID, videoID uuid.UUID) error {
	err := s.client.Bucket(s.users).Object(userKey(userID, videoID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete user copy of %s: %w", videoID, err)
	}
	return nil
}

// DeleteSharedCopy 删除共享桶中的视频对象,对象不存在视为成功。
func (s *AssetStore) DeleteSharedCopy(ctx context.Context, videoID uuid.UUID) error {
	err := s.client.Bucket(s.shared).Object(sharedKey(videoID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete shared copy of %s: %w", videoID, err)
	}
	return nil
}

// IssueLink 为用户桶中的视频副本签发限时下载链接。
// 签名前先确认对象存在,避免发出指向空对象的链接。
func (s *AssetStore) IssueLink(ctx context.Context, userID, videoID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	key := userKey(userID, videoID)
	bucket := s.client.Bucket(s.users)
	if _, err := bucket.Object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return "", time.Time{}, fmt.Errorf("issue link for %s: %w", videoID, ErrAssetMissing)
		}
		return "", time.Time{}, fmt.Errorf("issue link for %s: %w", videoID, err)
	}
	expiry := time.Now().Add(ttl)
	url, err := bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiry,
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign url for %s: %w", videoID, err)
	}
	return url, expiry, nil
}
