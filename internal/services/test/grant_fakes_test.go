package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bionicotaku/lingo-services-bonus/internal/clients"
	"github.com/bionicotaku/lingo-services-bonus/internal/models/po"
	"github.com/bionicotaku/lingo-services-bonus/internal/repositories"
	"github.com/bionicotaku/lingo-utils/txmanager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type fakeTxManager struct{}

type fakeSession struct{ ctx context.Context }

func (fakeTxManager) WithinTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, fakeSession{ctx: ctx})
}

func (fakeTxManager) WithinReadOnlyTx(ctx context.Context, _ txmanager.TxOptions, fn func(context.Context, txmanager.Session) error) error {
	return fn(ctx, fakeSession{ctx: ctx})
}

func (fakeSession) Tx() pgx.Tx { return nil }

func (s fakeSession) Context() context.Context { return s.ctx }

// opLog 记录各依赖被调用的顺序，用于断言补偿的逆序语义。
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

type fakePoolRepo struct {
	mu        sync.Mutex
	log       *opLog
	items     []*po.PoolItem
	claimErrs []error
	restored  []uuid.UUID
}

func (f *fakePoolRepo) Claim(_ context.Context, _ txmanager.Session) (*po.PoolItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("pool.claim")
	if len(f.claimErrs) > 0 {
		err := f.claimErrs[0]
		f.claimErrs = f.claimErrs[1:]
		return nil, err
	}
	if len(f.items) == 0 {
		return nil, repositories.ErrPoolEmpty
	}
	item := f.items[0]
	f.items = f.items[1:]
	return item, nil
}

func (f *fakePoolRepo) Restore(_ context.Context, _ txmanager.Session, item *po.PoolItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("pool.restore")
	f.restored = append(f.restored, item.VideoID)
	f.items = append(f.items, item)
	return nil
}

type fakeLedger struct {
	mu         sync.Mutex
	log        *opLog
	records    map[string]int64
	recordErrs []error
}

func newFakeLedger(log *opLog) *fakeLedger {
	return &fakeLedger{log: log, records: map[string]int64{}}
}

func ledgerKey(userID, videoID uuid.UUID) string {
	return userID.String() + "/" + videoID.String()
}

func (f *fakeLedger) Record(_ context.Context, _ txmanager.Session, input repositories.RecordAssignmentInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("ledger.record")
	if len(f.recordErrs) > 0 {
		err := f.recordErrs[0]
		f.recordErrs = f.recordErrs[1:]
		return err
	}
	f.records[ledgerKey(input.UserID, input.VideoID)] = input.ClaimedAtMS
	return nil
}

func (f *fakeLedger) Remove(_ context.Context, _ txmanager.Session, userID, videoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("ledger.remove")
	delete(f.records, ledgerKey(userID, videoID))
	return nil
}

func (f *fakeLedger) HasSince(_ context.Context, _ txmanager.Session, userID uuid.UUID, cutoffMS int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID.String() + "/"
	for key, claimedAtMS := range f.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix && claimedAtMS > cutoffMS {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) ListByUser(_ context.Context, _ txmanager.Session, userID uuid.UUID, _ int32) ([]*po.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := userID.String() + "/"
	var records []*po.Assignment
	for key, claimedAtMS := range f.records {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			videoID := uuid.MustParse(key[len(prefix):])
			records = append(records, &po.Assignment{UserID: userID, VideoID: videoID, ClaimedAtMS: claimedAtMS})
		}
	}
	return records, nil
}

func (f *fakeLedger) has(userID, videoID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[ledgerKey(userID, videoID)]
	return ok
}

type fakeAssetStore struct {
	mu            sync.Mutex
	log           *opLog
	shared        map[uuid.UUID]bool
	userCopies    map[string]bool
	copyErrs      []error
	deleteErrs    []error
	issueLinkErrs []error
}

func newFakeAssetStore(log *opLog) *fakeAssetStore {
	return &fakeAssetStore{
		log:        log,
		shared:     map[uuid.UUID]bool{},
		userCopies: map[string]bool{},
	}
}

func (f *fakeAssetStore) CopyToUser(_ context.Context, userID, videoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("assets.copy_to_user")
	if len(f.copyErrs) > 0 {
		err := f.copyErrs[0]
		f.copyErrs = f.copyErrs[1:]
		return err
	}
	if !f.shared[videoID] {
		return fmt.Errorf("copy %s: %w", videoID, clients.ErrSourceMissing)
	}
	f.userCopies[ledgerKey(userID, videoID)] = true
	return nil
}

func (f *fakeAssetStore) CopyToShared(_ context.Context, userID, videoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("assets.copy_to_shared")
	if !f.userCopies[ledgerKey(userID, videoID)] {
		return fmt.Errorf("copy back %s: %w", videoID, clients.ErrSourceMissing)
	}
	f.shared[videoID] = true
	return nil
}

func (f *fakeAssetStore) DeleteUserCopy(_ context.Context, userID, videoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("assets.delete_user_copy")
	delete(f.userCopies, ledgerKey(userID, videoID))
	return nil
}

func (f *fakeAssetStore) DeleteSharedCopy(_ context.Context, videoID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("assets.delete_shared_copy")
	if len(f.deleteErrs) > 0 {
		err := f.deleteErrs[0]
		f.deleteErrs = f.deleteErrs[1:]
		return err
	}
	delete(f.shared, videoID)
	return nil
}

func (f *fakeAssetStore) IssueLink(_ context.Context, userID, videoID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("assets.issue_link")
	if len(f.issueLinkErrs) > 0 {
		err := f.issueLinkErrs[0]
		f.issueLinkErrs = f.issueLinkErrs[1:]
		return "", time.Time{}, err
	}
	if !f.userCopies[ledgerKey(userID, videoID)] {
		return "", time.Time{}, fmt.Errorf("issue link %s: %w", videoID, clients.ErrAssetMissing)
	}
	return "https://storage.example.com/" + userID.String() + "/videos/" + videoID.String(), time.Now().Add(ttl), nil
}

func (f *fakeAssetStore) hasUserCopy(userID, videoID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userCopies[ledgerKey(userID, videoID)]
}

func (f *fakeAssetStore) hasShared(videoID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.shared[videoID]
}

type fakeOutboxWriter struct {
	mu     sync.Mutex
	log    *opLog
	events []repositories.OutboxMessage
	errs   []error
}

func (f *fakeOutboxWriter) Enqueue(_ context.Context, _ txmanager.Session, msg repositories.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.log.add("outbox.enqueue")
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	f.events = append(f.events, msg)
	return nil
}

func (f *fakeOutboxWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
