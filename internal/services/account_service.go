package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"receiptbook/internal/amqp"
	"receiptbook/internal/cache"
	"receiptbook/internal/core"
	"receiptbook/internal/ledger"
	"receiptbook/internal/session"
	"receiptbook/internal/sheets"
)

// usersCacheKey is the single key for the cached credential list.
const usersCacheKey = "users"

// PurgeResult reports what an account purge removed.
type PurgeResult struct {
	Username    string
	RowsRemoved int
	// Queued is true when ledger cleanup was handed to the
	// maintenance queue instead of running inline.
	Queued bool
}

// AccountService manages credential records, sessions and the
// cascading cleanup when an account is removed.
type AccountService struct {
	users       sheets.UserStore
	ledger      sheets.LedgerStore
	sessions    *session.Manager
	amqpClient  *amqp.Client
	usersCache  *cache.LRUCache[[]core.User]
	ledgerCache *cache.LRUCache[LedgerSnapshot]
	admin       string
}

func NewAccountService(
	users sheets.UserStore,
	ledgerStore sheets.LedgerStore,
	sessions *session.Manager,
	amqpClient *amqp.Client,
	usersCache *cache.LRUCache[[]core.User],
	ledgerCache *cache.LRUCache[LedgerSnapshot],
	adminUsername string,
) *AccountService {
	return &AccountService{
		users:       users,
		ledger:      ledgerStore,
		sessions:    sessions,
		amqpClient:  amqpClient,
		usersCache:  usersCache,
		ledgerCache: ledgerCache,
		admin:       adminUsername,
	}
}

// IsAdmin reports whether username is the configured admin account.
// The comparison is case-insensitive like the rest of username matching.
func (s *AccountService) IsAdmin(username string) bool {
	return strings.EqualFold(username, s.admin)
}

// HashPassword returns the lowercase hex SHA-256 digest of password.
// The stored schema mandates this fixed-length hex digest format.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func (s *AccountService) listUsers(ctx context.Context) ([]core.User, error) {
	if s.usersCache != nil {
		if users, ok := s.usersCache.Get(usersCacheKey); ok {
			return users, nil
		}
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	if s.usersCache != nil {
		s.usersCache.Set(usersCacheKey, users)
	}
	return users, nil
}

func (s *AccountService) invalidateUsers() {
	if s.usersCache != nil {
		s.usersCache.Clear()
	}
}

// findUser looks up a user by case-insensitive username and returns
// the record with its stored casing.
func (s *AccountService) findUser(ctx context.Context, username string) (core.User, error) {
	users, err := s.listUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("user %q: %w", username, core.ErrNotFound)
}

// Register creates a new account. Usernames are unique
// case-insensitively, and the admin name is reserved.
func (s *AccountService) Register(ctx context.Context, username, password, avatar string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", core.ErrInvalidCredentials)
	}

	if strings.EqualFold(username, s.admin) {
		return fmt.Errorf("username %q is reserved: %w", username, core.ErrDuplicateUsername)
	}

	if _, err := s.findUser(ctx, username); err == nil {
		return fmt.Errorf("username %q: %w", username, core.ErrDuplicateUsername)
	} else if !errors.Is(err, core.ErrNotFound) {
		return err
	}

	u := core.User{
		Username:       username,
		HashedPassword: HashPassword(password),
		Avatar:         avatar,
	}
	if err := s.users.AppendUser(ctx, u); err != nil {
		return fmt.Errorf("append user: %w", err)
	}

	s.invalidateUsers()
	slog.InfoContext(ctx, "Account registered", "username", username)
	return nil
}

// Login verifies credentials and starts a session. The returned session
// carries the stored username casing, which is what scopes the ledger.
func (s *AccountService) Login(ctx context.Context, username, password string) (*session.Session, core.User, error) {
	u, err := s.findUser(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.User{}, core.ErrInvalidCredentials
		}
		return nil, core.User{}, err
	}

	supplied := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(u.HashedPassword)) != 1 {
		return nil, core.User{}, core.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(u.Username)
	if err != nil {
		return nil, core.User{}, err
	}

	slog.InfoContext(ctx, "Login succeeded", "username", u.Username)
	return sess, u, nil
}

// Logout destroys the session for token. Unknown tokens are a no-op.
func (s *AccountService) Logout(token string) {
	s.sessions.Destroy(token)
}

// UpdateAvatar replaces the avatar on the account with the stored
// casing of username.
func (s *AccountService) UpdateAvatar(ctx context.Context, username, avatar string) error {
	u, err := s.findUser(ctx, username)
	if err != nil {
		return err
	}

	u.Avatar = avatar
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.invalidateUsers()
	return nil
}

// UpdatePassword verifies the current password and replaces it.
func (s *AccountService) UpdatePassword(ctx context.Context, username, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", core.ErrInvalidCredentials)
	}

	u, err := s.findUser(ctx, username)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(HashPassword(current)), []byte(u.HashedPassword)) != 1 {
		return core.ErrInvalidCredentials
	}

	u.HashedPassword = HashPassword(next)
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.invalidateUsers()
	return nil
}

// Purge removes the account and every ledger row it owns. The
// credential record goes first; when the subsequent ledger cleanup
// cannot be completed or queued, the account is already gone and the
// error wraps core.ErrPartialPurge.
func (s *AccountService) Purge(ctx context.Context, username string) (*PurgeResult, error) {
	u, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.users.DeleteUser(ctx, u.Username); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	s.invalidateUsers()
	s.sessions.DestroyUser(u.Username)

	result := &PurgeResult{Username: u.Username}

	// Ledger rewrites are serialized through the maintenance queue
	// when a broker is configured.
	if s.amqpClient != nil {
		if err := s.amqpClient.PublishTask(ctx, amqp.NewPurgeOwnerTask(u.Username)); err != nil {
			return result, fmt.Errorf("%w: account %q removed but ledger cleanup could not be queued: %v",
				core.ErrPartialPurge, u.Username, err)
		}
		result.Queued = true
		slog.InfoContext(ctx, "Account purged, ledger cleanup queued", "username", u.Username)
		return result, nil
	}

	removed, err := s.PurgeLedgerRows(ctx, u.Username)
	if err != nil {
		return result, fmt.Errorf("%w: account %q removed but ledger rows remain: %v",
			core.ErrPartialPurge, u.Username, err)
	}
	result.RowsRemoved = removed

	slog.InfoContext(ctx, "Account purged", "username", u.Username, "rows_removed", removed)
	return result, nil
}

// PurgeLedgerRows rewrites the ledger without the rows owned by owner
// and returns how many were removed.
func (s *AccountService) PurgeLedgerRows(ctx context.Context, owner string) (int, error) {
	raws, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	kept, removed := ledger.RemoveOwnerRows(raws, owner)
	if removed == 0 {
		return 0, nil
	}

	if err := s.ledger.RewriteAll(ctx, kept); err != nil {
		return 0, fmt.Errorf("rewrite ledger: %w", err)
	}

	if s.ledgerCache != nil {
		s.ledgerCache.Clear()
	}
	return removed, nil
}

// RequestPrune triggers duplicate pruning, through the maintenance
// queue when a broker is configured and inline otherwise. The removed
// count is only known on the inline path.
func (s *AccountService) RequestPrune(ctx context.Context) (removed int, queued bool, err error) {
	if s.amqpClient != nil {
		if err := s.amqpClient.PublishTask(ctx, amqp.NewPruneDuplicatesTask()); err != nil {
			return 0, false, fmt.Errorf("queue prune task: %w", err)
		}
		slog.InfoContext(ctx, "Duplicate pruning queued")
		return 0, true, nil
	}

	removed, err = s.PruneDuplicates(ctx)
	return removed, false, err
}

// PruneDuplicates rewrites the ledger with duplicate rows collapsed and
// returns how many were removed. A clean ledger is left untouched.
func (s *AccountService) PruneDuplicates(ctx context.Context) (int, error) {
	raws, err := s.ledger.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	deduped, removed := ledger.DeduplicateRows(raws)
	if removed == 0 {
		return 0, nil
	}

	if err := s.ledger.RewriteAll(ctx, deduped); err != nil {
		return 0, fmt.Errorf("rewrite ledger: %w", err)
	}

	if s.ledgerCache != nil {
		s.ledgerCache.Clear()
	}

	slog.InfoContext(ctx, "Duplicate rows pruned", "removed", removed)
	return removed, nil
}
